package usecases

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/shared/constants"
)

// PayloadKind tells what a paid invoice buys.
type PayloadKind string

const (
	// PayloadPlan buys a new grant of the plan.
	PayloadPlan PayloadKind = "plan"
	// PayloadExtend prolongs the current grant by the plan's duration.
	PayloadExtend PayloadKind = "extend"
)

// InvoicePayload is the decoded invoice payload: plan_<id> or extend_<id>.
type InvoicePayload struct {
	Kind   PayloadKind
	PlanID uint
}

func (p InvoicePayload) String() string {
	return fmt.Sprintf("%s_%d", p.Kind, p.PlanID)
}

// ParseInvoicePayload decodes raw. Anything else is ErrInvalidPaymentPayload.
func ParseInvoicePayload(raw string) (InvoicePayload, error) {
	var (
		kind PayloadKind
		rest string
	)
	switch {
	case strings.HasPrefix(raw, constants.PayloadPrefixPlan):
		kind, rest = PayloadPlan, strings.TrimPrefix(raw, constants.PayloadPrefixPlan)
	case strings.HasPrefix(raw, constants.PayloadPrefixExtend):
		kind, rest = PayloadExtend, strings.TrimPrefix(raw, constants.PayloadPrefixExtend)
	default:
		return InvoicePayload{}, fmt.Errorf("%w: %q", subscription.ErrInvalidPaymentPayload, raw)
	}

	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return InvoicePayload{}, fmt.Errorf("%w: %q", subscription.ErrInvalidPaymentPayload, raw)
	}
	return InvoicePayload{Kind: kind, PlanID: uint(id)}, nil
}
