package usecases

import "time"

// SetClock replaces the time source. Tests and the scheduler use it to pin "now".
func (uc *GrantSubscriptionUseCase) SetClock(now func() time.Time)      { uc.now = now }
func (uc *ExtendSubscriptionUseCase) SetClock(now func() time.Time)     { uc.now = now }
func (uc *RevokeSubscriptionUseCase) SetClock(now func() time.Time)     { uc.now = now }
func (uc *ValidateJoinUseCase) SetClock(now func() time.Time)           { uc.now = now }
func (uc *GetCurrentSubscriptionUseCase) SetClock(now func() time.Time) { uc.now = now }
func (uc *IssueInviteUseCase) SetClock(now func() time.Time)            { uc.now = now }
func (uc *RegisterUserUseCase) SetClock(now func() time.Time)           { uc.now = now }
