// Package subscription holds the subscription lifecycle domain: users, plans,
// time-bounded channel access grants and payment activation failures.
package subscription

import (
	"fmt"
	"time"
)

// Subscription is one time-bounded access grant to a plan's channel.
// Rows are never deleted; an ended grant stays as audit history with active=false.
type Subscription struct {
	id                  uint
	userID              uint
	planID              uint
	startDate           time.Time
	endDate             time.Time
	active              bool
	inviteLink          *string
	reminderSent        bool
	lastDayReminderSent bool
	expiredReminderSent bool
	paymentChargeID     *string
	createdAt           time.Time
	updatedAt           time.Time
}

// NewSubscription creates an active grant covering [start, start+duration) with all flags cleared.
func NewSubscription(userID, planID uint, start time.Time, duration time.Duration) (*Subscription, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if planID == 0 {
		return nil, fmt.Errorf("plan ID is required")
	}
	if duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", duration)
	}

	start = start.UTC()
	return &Subscription{
		userID:    userID,
		planID:    planID,
		startDate: start,
		endDate:   start.Add(duration),
		active:    true,
		createdAt: start,
		updatedAt: start,
	}, nil
}

// SubscriptionReconstructParams carries persisted state back into the aggregate.
type SubscriptionReconstructParams struct {
	ID                  uint
	UserID              uint
	PlanID              uint
	StartDate           time.Time
	EndDate             time.Time
	Active              bool
	InviteLink          *string
	ReminderSent        bool
	LastDayReminderSent bool
	ExpiredReminderSent bool
	PaymentChargeID     *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ReconstructSubscription rebuilds a subscription from persistence.
func ReconstructSubscription(p SubscriptionReconstructParams) (*Subscription, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if p.UserID == 0 || p.PlanID == 0 {
		return nil, fmt.Errorf("subscription %d: user and plan are required", p.ID)
	}
	return &Subscription{
		id:                  p.ID,
		userID:              p.UserID,
		planID:              p.PlanID,
		startDate:           p.StartDate.UTC(),
		endDate:             p.EndDate.UTC(),
		active:              p.Active,
		inviteLink:          p.InviteLink,
		reminderSent:        p.ReminderSent,
		lastDayReminderSent: p.LastDayReminderSent,
		expiredReminderSent: p.ExpiredReminderSent,
		paymentChargeID:     p.PaymentChargeID,
		createdAt:           p.CreatedAt,
		updatedAt:           p.UpdatedAt,
	}, nil
}

func (s *Subscription) ID() uint                  { return s.id }
func (s *Subscription) UserID() uint              { return s.userID }
func (s *Subscription) PlanID() uint              { return s.planID }
func (s *Subscription) StartDate() time.Time      { return s.startDate }
func (s *Subscription) EndDate() time.Time        { return s.endDate }
func (s *Subscription) IsActive() bool            { return s.active }
func (s *Subscription) ReminderSent() bool        { return s.reminderSent }
func (s *Subscription) LastDayReminderSent() bool { return s.lastDayReminderSent }
func (s *Subscription) ExpiredReminderSent() bool { return s.expiredReminderSent }
func (s *Subscription) CreatedAt() time.Time      { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time      { return s.updatedAt }

// InviteLink returns the outstanding invite link, or "" when none exists.
func (s *Subscription) InviteLink() string {
	if s.inviteLink == nil {
		return ""
	}
	return *s.inviteLink
}

// HasInviteLink reports whether an unrevoked invite is recorded for this grant.
func (s *Subscription) HasInviteLink() bool {
	return s.inviteLink != nil && *s.inviteLink != ""
}

// PaymentChargeID returns the provider transaction reference, or "" when unset.
func (s *Subscription) PaymentChargeID() string {
	if s.paymentChargeID == nil {
		return ""
	}
	return *s.paymentChargeID
}

// SetID sets the ID after persistence. Only the repository should call it.
func (s *Subscription) SetID(id uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	s.id = id
	return nil
}

// IsExpired reports whether the grant window has closed at now.
func (s *Subscription) IsExpired(now time.Time) bool {
	return !s.endDate.After(now)
}

// IsCurrent reports whether the grant currently entitles its owner to the channel.
func (s *Subscription) IsCurrent(now time.Time) bool {
	return s.active && !s.IsExpired(now)
}

// Deactivate ends the grant and forgets its invite link.
func (s *Subscription) Deactivate(now time.Time) {
	s.active = false
	s.inviteLink = nil
	s.updatedAt = now
}

// Extend pushes the end date by d. The grant is reactivated when the new end lies in the
// future. resetReminder clears reminder_sent so a fresh pre-expiry cycle can start.
func (s *Subscription) Extend(d time.Duration, now time.Time, resetReminder bool) error {
	if d <= 0 {
		return fmt.Errorf("extension must be positive, got %s", d)
	}
	s.endDate = s.endDate.Add(d)
	if !s.active && s.endDate.After(now) {
		s.active = true
	}
	if resetReminder {
		s.reminderSent = false
	}
	s.updatedAt = now
	return nil
}

// AttachInviteLink records the invite link issued for this grant.
func (s *Subscription) AttachInviteLink(link string, now time.Time) {
	if link == "" {
		s.inviteLink = nil
	} else {
		s.inviteLink = &link
	}
	s.updatedAt = now
}

// ClearInviteLink forgets the invite link after it was consumed or revoked.
func (s *Subscription) ClearInviteLink(now time.Time) {
	s.inviteLink = nil
	s.updatedAt = now
}

// RecordPayment stores the provider transaction reference of the payment that funded the grant.
func (s *Subscription) RecordPayment(chargeID string) {
	if chargeID == "" {
		return
	}
	s.paymentChargeID = &chargeID
}

// ReassignPlan moves the grant to a successor plan without touching dates or the active flag.
func (s *Subscription) ReassignPlan(planID uint, now time.Time) error {
	if planID == 0 {
		return fmt.Errorf("plan ID is required")
	}
	s.planID = planID
	s.updatedAt = now
	return nil
}
