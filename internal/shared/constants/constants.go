package constants

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	HeaderAuthorization      = "Authorization"
	HeaderTelegramSecret     = "X-Telegram-Bot-Api-Secret-Token"
	ContextKeyRequestID      = "request_id"
	InviteNamePrefix         = "Subscription_"
	PayloadPrefixPlan        = "plan_"
	PayloadPrefixExtend      = "extend_"
	ActionBuySubscription    = "buy_subscription"
	ActionExtendSubscription = "extend_subscription"
	ActionCancelSubscription = "cancel_subscription"
	ActionConfirmCancel      = "confirm_cancel_subscription"
)

// Database table names
const (
	TableUsers             = "users"
	TablePlans             = "subscription_plans"
	TableUserSubscriptions = "user_subscriptions"
	TablePaymentErrors     = "payment_errors"
	TablePaymentCharges    = "payment_charges"
)
