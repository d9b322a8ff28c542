package usecases

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/utils"
)

// PlanDefinition is one plan entry of the catalog file.
type PlanDefinition struct {
	Name         string  `yaml:"name" validate:"required,max=255"`
	Description  string  `yaml:"description"`
	Price        int64   `yaml:"price" validate:"gte=0"`
	DurationDays float64 `yaml:"duration_days" validate:"gt=0"`
	ChannelID    string  `yaml:"channel_id"`
}

// Catalog is the declarative list of plans offered for sale.
type Catalog struct {
	// ChannelID applies to every plan that does not name its own channel.
	ChannelID string           `yaml:"channel_id"`
	Plans     []PlanDefinition `yaml:"plans" validate:"required,min=1,dive"`
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var catalog Catalog
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		return nil, apperrors.NewValidationError("invalid catalog", err.Error())
	}
	if err := utils.ValidateStruct(&catalog); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(catalog.Plans))
	for i := range catalog.Plans {
		p := &catalog.Plans[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.ChannelID == "" {
			p.ChannelID = catalog.ChannelID
		}
		key := fmt.Sprintf("%s|%d|%g", p.Name, p.Price, p.DurationDays)
		if _, dup := seen[key]; dup {
			return nil, apperrors.NewValidationError("duplicate catalog plan", key)
		}
		seen[key] = struct{}{}
	}
	return &catalog, nil
}
