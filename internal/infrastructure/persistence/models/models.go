// Package models holds the gorm persistence models. They are the anti-corruption layer
// between the domain aggregates and the relational schema.
package models

// All returns every model in foreign-key order, for AutoMigrate in tests and sqlite installs.
func All() []interface{} {
	return []interface{}{
		&UserModel{},
		&PlanModel{},
		&SubscriptionModel{},
		&PaymentErrorModel{},
		&PaymentChargeModel{},
	}
}
