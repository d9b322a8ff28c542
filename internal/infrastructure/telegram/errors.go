package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidChatID is returned when an id cannot be sent to the Bot API as an integer.
var ErrInvalidChatID = errors.New("telegram: invalid chat or user id")

// APIError represents a structured Telegram Bot API error response.
type APIError struct {
	Method      string
	ErrorCode   int    // HTTP-level error code from Telegram (e.g., 400, 403, 429)
	Description string // Human-readable error description
	RetryAfter  int    // Seconds to wait before retrying (only for 429)
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("telegram %s: error %d: %s (retry_after=%ds)", e.Method, e.ErrorCode, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram %s: error %d: %s", e.Method, e.ErrorCode, e.Description)
}

// Outcome is the single classification every gateway result is reduced to.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTransient
	OutcomePermanent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTransient:
		return "transient"
	case OutcomePermanent:
		return "permanent"
	}
	return "unknown"
}

// ClassifyError maps a Bot API call result onto Outcome.
// Throttling, server errors and transport failures are transient; any other
// 4xx is permanent because resending the same request cannot change the answer.
func ClassifyError(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	if errors.Is(err, ErrInvalidChatID) {
		return OutcomePermanent
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.ErrorCode == 429:
			return OutcomeTransient
		case apiErr.ErrorCode >= 500:
			return OutcomeTransient
		case apiErr.ErrorCode >= 400:
			return OutcomePermanent
		}
		return OutcomeTransient
	}

	// Transport failures, timeouts and undecodable responses.
	return OutcomeTransient
}

func descriptionContains(err error, needles ...string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	desc := strings.ToLower(apiErr.Description)
	for _, n := range needles {
		if strings.Contains(desc, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// IsNotParticipant reports that the user or chat no longer exists for the bot,
// which for membership removal is as good as success.
func IsNotParticipant(err error) bool {
	return descriptionContains(err, "USER_NOT_PARTICIPANT", "user not found", "chat not found", "PARTICIPANT_ID_INVALID")
}

// IsInviteGone reports that the invite is already expired or unknown.
func IsInviteGone(err error) bool {
	return descriptionContains(err, "INVITE_HASH_EXPIRED", "not found")
}

// IsRecipientGone reports that a message can never reach the user:
// the bot was blocked, the account was deleted, or the chat never existed.
func IsRecipientGone(err error) bool {
	if IsBotBlocked(err) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode == 400 {
		return descriptionContains(err, "chat not found", "user is deactivated", "PEER_ID_INVALID")
	}
	return false
}

// IsBotBlocked returns true if the error indicates the bot was blocked by the user (403).
func IsBotBlocked(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == 403
	}
	return false
}

// RetryAfterOf extracts the flood-control wait from a 429 error.
func RetryAfterOf(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode == 429 {
		return time.Duration(apiErr.RetryAfter) * time.Second
	}
	return 0
}
