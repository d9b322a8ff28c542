package subscription

import (
	"fmt"
	"strings"
	"time"
)

// PaymentError records a payment that was captured by the provider but could not be
// turned into a grant. It exists for manual remediation and is only mutated by Resolve.
type PaymentError struct {
	id              uint
	telegramUserID  string
	planID          *uint
	chargeID        string
	amount          int64
	currency        string
	errorMessage    string
	invoicePayload  string
	paymentInfo     map[string]any
	stackTrace      string
	resolved        bool
	resolutionNotes string
	resolvedAt      *time.Time
	paymentTime     time.Time
}

// PaymentErrorParams describes a failed activation at capture time.
type PaymentErrorParams struct {
	TelegramUserID string
	PlanID         *uint
	ChargeID       string
	Amount         int64
	Currency       string
	ErrorMessage   string
	InvoicePayload string
	PaymentInfo    map[string]any
	StackTrace     string
	PaymentTime    time.Time
}

// NewPaymentError creates an unresolved payment error.
func NewPaymentError(p PaymentErrorParams) (*PaymentError, error) {
	if strings.TrimSpace(p.TelegramUserID) == "" {
		return nil, fmt.Errorf("telegram user ID is required")
	}
	if p.PaymentInfo == nil {
		p.PaymentInfo = map[string]any{}
	}
	return &PaymentError{
		telegramUserID: p.TelegramUserID,
		planID:         p.PlanID,
		chargeID:       p.ChargeID,
		amount:         p.Amount,
		currency:       p.Currency,
		errorMessage:   p.ErrorMessage,
		invoicePayload: p.InvoicePayload,
		paymentInfo:    p.PaymentInfo,
		stackTrace:     p.StackTrace,
		paymentTime:    p.PaymentTime.UTC(),
	}, nil
}

// PaymentErrorReconstructParams carries persisted state back into the entity.
type PaymentErrorReconstructParams struct {
	ID              uint
	Params          PaymentErrorParams
	Resolved        bool
	ResolutionNotes string
	ResolvedAt      *time.Time
}

// ReconstructPaymentError rebuilds a payment error from persistence.
func ReconstructPaymentError(p PaymentErrorReconstructParams) (*PaymentError, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("payment error ID cannot be zero")
	}
	pe, err := NewPaymentError(p.Params)
	if err != nil {
		return nil, err
	}
	pe.id = p.ID
	pe.resolved = p.Resolved
	pe.resolutionNotes = p.ResolutionNotes
	pe.resolvedAt = p.ResolvedAt
	return pe, nil
}

func (e *PaymentError) ID() uint                    { return e.id }
func (e *PaymentError) TelegramUserID() string      { return e.telegramUserID }
func (e *PaymentError) PlanID() *uint               { return e.planID }
func (e *PaymentError) ChargeID() string            { return e.chargeID }
func (e *PaymentError) Amount() int64               { return e.amount }
func (e *PaymentError) Currency() string            { return e.currency }
func (e *PaymentError) ErrorMessage() string        { return e.errorMessage }
func (e *PaymentError) InvoicePayload() string      { return e.invoicePayload }
func (e *PaymentError) PaymentInfo() map[string]any { return e.paymentInfo }
func (e *PaymentError) StackTrace() string          { return e.stackTrace }
func (e *PaymentError) IsResolved() bool            { return e.resolved }
func (e *PaymentError) ResolutionNotes() string     { return e.resolutionNotes }
func (e *PaymentError) ResolvedAt() *time.Time      { return e.resolvedAt }
func (e *PaymentError) PaymentTime() time.Time      { return e.paymentTime }

// SetID sets the ID after persistence. Only the repository should call it.
func (e *PaymentError) SetID(id uint) error {
	if e.id != 0 {
		return fmt.Errorf("payment error ID is already set")
	}
	e.id = id
	return nil
}

// Resolve closes the error with operator notes.
func (e *PaymentError) Resolve(notes string, now time.Time) error {
	if e.resolved {
		return ErrPaymentErrorResolved
	}
	e.resolved = true
	e.resolutionNotes = strings.TrimSpace(notes)
	t := now.UTC()
	e.resolvedAt = &t
	return nil
}
