package subscription

import "time"

// PaymentCharge records that a provider charge was turned into access on a subscription.
// A charge is recorded once, whether it opened a grant or extended one.
type PaymentCharge struct {
	ChargeID       string
	SubscriptionID uint
	RecordedAt     time.Time
}
