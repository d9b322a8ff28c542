package subscription

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/channelgate/channelgate/internal/shared/biztime"
)

// Plan is a purchasable tier. Plans are never deleted because historical grants
// reference them. A plan that left the catalog is retired: it keeps serving existing
// grants but is no longer offered or sold.
type Plan struct {
	id           uint
	name         string
	description  string
	price        int64
	durationDays float64
	channelID    *string
	retiredAt    *time.Time
}

// NewPlan validates and creates a plan. price is in minor currency units;
// durationDays may be fractional to support short test tiers.
func NewPlan(name, description string, price int64, durationDays float64, channelID string) (*Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("plan name is required")
	}
	if price < 0 {
		return nil, fmt.Errorf("plan price cannot be negative")
	}
	if durationDays <= 0 || math.IsNaN(durationDays) || math.IsInf(durationDays, 0) {
		return nil, fmt.Errorf("plan duration must be a positive number of days")
	}
	p := &Plan{
		name:         name,
		description:  description,
		price:        price,
		durationDays: durationDays,
	}
	p.SetChannel(channelID)
	return p, nil
}

// ReconstructPlan rebuilds a plan from persistence.
func ReconstructPlan(id uint, name, description string, price int64, durationDays float64, channelID *string, retiredAt *time.Time) (*Plan, error) {
	if id == 0 {
		return nil, fmt.Errorf("plan ID cannot be zero")
	}
	return &Plan{
		id:           id,
		name:         name,
		description:  description,
		price:        price,
		durationDays: durationDays,
		channelID:    channelID,
		retiredAt:    retiredAt,
	}, nil
}

func (p *Plan) ID() uint              { return p.id }
func (p *Plan) Name() string          { return p.name }
func (p *Plan) Description() string   { return p.description }
func (p *Plan) Price() int64          { return p.price }
func (p *Plan) DurationDays() float64 { return p.durationDays }
func (p *Plan) RetiredAt() *time.Time { return p.retiredAt }
func (p *Plan) IsRetired() bool       { return p.retiredAt != nil }

// Purchasable reports whether the plan may be offered and sold.
func (p *Plan) Purchasable() bool {
	return p.HasChannel() && !p.IsRetired()
}

// Retire withdraws the plan from sale. It reports whether anything changed.
func (p *Plan) Retire(at time.Time) bool {
	if p.retiredAt != nil {
		return false
	}
	at = at.UTC()
	p.retiredAt = &at
	return true
}

// Reinstate puts a retired plan back on sale. It reports whether anything changed.
func (p *Plan) Reinstate() bool {
	if p.retiredAt == nil {
		return false
	}
	p.retiredAt = nil
	return true
}

// Duration converts the plan length to a time.Duration.
func (p *Plan) Duration() time.Duration {
	return biztime.DaysToDuration(p.durationDays)
}

// ChannelID returns the gated channel, or "" for plans without one.
func (p *Plan) ChannelID() string {
	if p.channelID == nil {
		return ""
	}
	return *p.channelID
}

// HasChannel reports whether granting this plan must issue a channel invite.
func (p *Plan) HasChannel() bool {
	return p.channelID != nil && *p.channelID != ""
}

// SetID sets the ID after persistence. Only the repository should call it.
func (p *Plan) SetID(id uint) error {
	if p.id != 0 {
		return fmt.Errorf("plan ID is already set")
	}
	p.id = id
	return nil
}

// SetChannel replaces the target channel. Blank clears it.
func (p *Plan) SetChannel(channelID string) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		p.channelID = nil
		return
	}
	p.channelID = &channelID
}

// SetDescription replaces the marketing description; it is not part of the plan identity.
func (p *Plan) SetDescription(description string) {
	p.description = description
}

// Matches reports whether the plan has the catalog identity (name, price, duration).
// Names alone are not unique across catalog generations.
func (p *Plan) Matches(name string, price int64, durationDays float64) bool {
	return p.name == strings.TrimSpace(name) &&
		p.price == price &&
		math.Abs(p.durationDays-durationDays) < 1e-9
}
