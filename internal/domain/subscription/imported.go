package subscription

import (
	"fmt"
	"strings"
	"time"
)

// ImportedUserParams is a user row carried over from a legacy dump.
type ImportedUserParams struct {
	TelegramUserID     string
	FirstName          string
	Active             bool
	RegistrationNudged bool
	CreatedAt          time.Time
}

// ImportUser builds a not yet persisted user that keeps its legacy flags.
func ImportUser(p ImportedUserParams) (*User, error) {
	u, err := NewUser(p.TelegramUserID, p.FirstName, p.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.active = p.Active
	u.registrationNudged = p.RegistrationNudged
	return u, nil
}

// ImportedSubscriptionParams is a subscription row carried over from a legacy dump.
type ImportedSubscriptionParams struct {
	UserID              uint
	PlanID              uint
	StartDate           time.Time
	EndDate             time.Time
	Active              bool
	InviteLink          string
	ReminderSent        bool
	LastDayReminderSent bool
	ExpiredReminderSent bool
	PaymentChargeID     string
}

// ImportSubscription builds a not yet persisted grant with explicit bounds and flags.
// An inactive grant never keeps an invite link.
func ImportSubscription(p ImportedSubscriptionParams, now time.Time) (*Subscription, error) {
	if !p.EndDate.After(p.StartDate) {
		return nil, fmt.Errorf("end date %s is not after start date %s", p.EndDate, p.StartDate)
	}
	s, err := NewSubscription(p.UserID, p.PlanID, p.StartDate, p.EndDate.Sub(p.StartDate))
	if err != nil {
		return nil, err
	}
	s.active = p.Active
	s.reminderSent = p.ReminderSent
	s.lastDayReminderSent = p.LastDayReminderSent
	s.expiredReminderSent = p.ExpiredReminderSent
	if link := strings.TrimSpace(p.InviteLink); link != "" && p.Active {
		s.inviteLink = &link
	}
	if charge := strings.TrimSpace(p.PaymentChargeID); charge != "" {
		s.paymentChargeID = &charge
	}
	s.createdAt = now.UTC()
	s.updatedAt = now.UTC()
	return s, nil
}
