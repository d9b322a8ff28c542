package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

type RegisterUserCommand struct {
	TelegramUserID string
	FirstName      string
	LanguageCode   string
}

// RegisterUserUseCase resolves or creates the user behind a first contact and keeps
// the display name and language current.
type RegisterUserUseCase struct {
	userRepo subscription.UserRepository
	logger   logger.Interface
	now      func() time.Time
}

func NewRegisterUserUseCase(userRepo subscription.UserRepository, logger logger.Interface) *RegisterUserUseCase {
	return &RegisterUserUseCase{
		userRepo: userRepo,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Execute returns the user and whether it was created by this call.
func (uc *RegisterUserUseCase) Execute(ctx context.Context, cmd RegisterUserCommand) (*subscription.User, bool, error) {
	user, created, err := resolveUser(ctx, uc.userRepo, cmd, uc.now())
	if err != nil {
		uc.logger.Errorw("failed to resolve user", "error", err, "telegram_user_id", cmd.TelegramUserID)
		return nil, false, err
	}
	if created {
		uc.logger.Infow("user registered", "user_id", user.ID(), "telegram_user_id", cmd.TelegramUserID)
	}
	return user, created, nil
}

func resolveUser(ctx context.Context, repo subscription.UserRepository, cmd RegisterUserCommand, now time.Time) (*subscription.User, bool, error) {
	user, err := repo.GetByTelegramID(ctx, cmd.TelegramUserID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}

	if user == nil {
		user, err = subscription.NewUser(cmd.TelegramUserID, cmd.FirstName, now)
		if err != nil {
			return nil, false, err
		}
		user.SetLanguage(cmd.LanguageCode)
		if err := repo.Create(ctx, user); err != nil {
			return nil, false, fmt.Errorf("failed to create user: %w", err)
		}
		return user, true, nil
	}

	changed := false
	if cmd.FirstName != "" && cmd.FirstName != user.FirstName() {
		user.Rename(cmd.FirstName)
		changed = true
	}
	if cmd.LanguageCode != "" && cmd.LanguageCode != user.LanguageCode() {
		user.SetLanguage(cmd.LanguageCode)
		changed = true
	}
	if changed {
		if err := repo.Update(ctx, user); err != nil {
			return nil, false, fmt.Errorf("failed to update user: %w", err)
		}
	}
	return user, false, nil
}
