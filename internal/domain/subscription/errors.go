package subscription

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrPlanNotFound          = errors.New("subscription plan not found")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrNoActiveSubscription  = errors.New("no active subscription")
	ErrPaymentErrorNotFound  = errors.New("payment error not found")
	ErrPaymentErrorResolved  = errors.New("payment error already resolved")
	ErrInvalidPaymentPayload = errors.New("invalid invoice payload")
)
