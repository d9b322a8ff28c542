package subscription

import (
	"fmt"
	"strings"
	"time"
)

// User is the identity anchor keyed by the Telegram user id. Users are never hard-deleted.
type User struct {
	id                 uint
	telegramUserID     string
	firstName          *string
	languageCode       string
	active             bool
	registrationNudged bool
	createdAt          time.Time
}

// NewUser creates an active user on first contact.
func NewUser(telegramUserID, firstName string, now time.Time) (*User, error) {
	telegramUserID = strings.TrimSpace(telegramUserID)
	if telegramUserID == "" {
		return nil, fmt.Errorf("telegram user ID is required")
	}
	u := &User{
		telegramUserID: telegramUserID,
		active:         true,
		createdAt:      now.UTC(),
	}
	u.Rename(firstName)
	return u, nil
}

// UserReconstructParams carries persisted state back into the aggregate.
type UserReconstructParams struct {
	ID                 uint
	TelegramUserID     string
	FirstName          *string
	LanguageCode       string
	Active             bool
	RegistrationNudged bool
	CreatedAt          time.Time
}

// ReconstructUser rebuilds a user from persistence.
func ReconstructUser(p UserReconstructParams) (*User, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("user ID cannot be zero")
	}
	return &User{
		id:                 p.ID,
		telegramUserID:     p.TelegramUserID,
		firstName:          p.FirstName,
		languageCode:       p.LanguageCode,
		active:             p.Active,
		registrationNudged: p.RegistrationNudged,
		createdAt:          p.CreatedAt.UTC(),
	}, nil
}

func (u *User) ID() uint                 { return u.id }
func (u *User) TelegramUserID() string   { return u.telegramUserID }
func (u *User) LanguageCode() string     { return u.languageCode }
func (u *User) IsActive() bool           { return u.active }
func (u *User) RegistrationNudged() bool { return u.registrationNudged }
func (u *User) CreatedAt() time.Time     { return u.createdAt }

// FirstName returns the display name, or "" when the user never shared one.
func (u *User) FirstName() string {
	if u.firstName == nil {
		return ""
	}
	return *u.firstName
}

// SetID sets the ID after persistence. Only the repository should call it.
func (u *User) SetID(id uint) error {
	if u.id != 0 {
		return fmt.Errorf("user ID is already set")
	}
	u.id = id
	return nil
}

// Rename updates the display name. Blank names clear it.
func (u *User) Rename(firstName string) {
	firstName = strings.TrimSpace(firstName)
	if firstName == "" {
		u.firstName = nil
		return
	}
	u.firstName = &firstName
}

// SetLanguage stores the Telegram language code used to localise notifications.
func (u *User) SetLanguage(code string) {
	u.languageCode = strings.TrimSpace(code)
}

// MarkRegistrationNudged records that the one-shot registration nudge went out.
func (u *User) MarkRegistrationNudged() {
	u.registrationNudged = true
}
