package subscription

import "fmt"

// ReminderKind names one of the one-shot notification flags of a subscription.
type ReminderKind string

const (
	ReminderPreExpiry  ReminderKind = "reminder_sent"
	ReminderLastDay    ReminderKind = "last_day_reminder_sent"
	ReminderPostExpiry ReminderKind = "expired_reminder_sent"
)

// Column returns the persisted column backing the flag.
func (k ReminderKind) Column() string {
	return string(k)
}

// Validate rejects unknown kinds so they never reach a dynamic column update.
func (k ReminderKind) Validate() error {
	switch k {
	case ReminderPreExpiry, ReminderLastDay, ReminderPostExpiry:
		return nil
	}
	return fmt.Errorf("unknown reminder kind %q", string(k))
}

// ReminderFlag reports the current value of the flag named by kind.
func (s *Subscription) ReminderFlag(kind ReminderKind) bool {
	switch kind {
	case ReminderPreExpiry:
		return s.reminderSent
	case ReminderLastDay:
		return s.lastDayReminderSent
	case ReminderPostExpiry:
		return s.expiredReminderSent
	}
	return false
}

// MarkReminderSent sets the flag named by kind. Flags only move from false to true here.
func (s *Subscription) MarkReminderSent(kind ReminderKind) {
	switch kind {
	case ReminderPreExpiry:
		s.reminderSent = true
	case ReminderLastDay:
		s.lastDayReminderSent = true
	case ReminderPostExpiry:
		s.expiredReminderSent = true
	}
}
