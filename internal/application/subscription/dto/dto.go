// Package dto holds read models returned by the subscription use cases.
package dto

import "time"

// CurrentSubscriptionDTO is the user-facing view of the grant that currently entitles a user.
type CurrentSubscriptionDTO struct {
	SubscriptionID uint
	PlanID         uint
	PlanName       string
	ChannelID      string
	EndDate        time.Time
	DaysLeft       int
	InviteLink     string
}

// GrantResultDTO describes a freshly granted subscription.
type GrantResultDTO struct {
	SubscriptionID uint
	UserID         uint
	PlanName       string
	EndDate        time.Time
	InviteLink     string
}
