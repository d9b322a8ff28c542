package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sharedConfig "github.com/channelgate/channelgate/internal/shared/config"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// BotService provides Telegram Bot API operations
type BotService struct {
	config     sharedConfig.TelegramConfig
	httpClient *http.Client
	baseURL    string
}

// NewBotService creates a new Telegram bot service
func NewBotService(config sharedConfig.TelegramConfig) *BotService {
	base := strings.TrimRight(config.APIBaseURL, "/")
	if base == "" {
		base = defaultAPIBaseURL
	}
	return &BotService{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: fmt.Sprintf("%s/bot%s", base, config.BotToken),
	}
}

// BotID is the numeric prefix of the bot token, which Telegram uses as the bot's user id.
func (s *BotService) BotID() string {
	id, _, _ := strings.Cut(s.config.BotToken, ":")
	return id
}

// apiResponse represents a Telegram API response
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

// SetWebhook sets the webhook URL for receiving updates
func (s *BotService) SetWebhook(ctx context.Context, webhookURL string) error {
	body := map[string]any{
		"url":             webhookURL,
		"allowed_updates": allowedUpdates,
	}
	if s.config.WebhookSecret != "" {
		body["secret_token"] = s.config.WebhookSecret
	}
	return s.call(ctx, s.httpClient, "setWebhook", body, nil)
}

// DeleteWebhook removes the webhook
func (s *BotService) DeleteWebhook(ctx context.Context) error {
	return s.call(ctx, s.httpClient, "deleteWebhook", nil, nil)
}

// SetMyCommands sets the list of bot commands shown in the command menu
func (s *BotService) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	return s.call(ctx, s.httpClient, "setMyCommands", map[string]any{"commands": commands}, nil)
}

// SetMyCommandsForChat sets commands visible only in one private chat.
func (s *BotService) SetMyCommandsForChat(ctx context.Context, chatID int64, commands []BotCommand) error {
	body := map[string]any{
		"commands": commands,
		"scope": map[string]any{
			"type":    "chat",
			"chat_id": chatID,
		},
	}
	return s.call(ctx, s.httpClient, "setMyCommands", body, nil)
}

var (
	userCommands = []BotCommand{
		{Command: "start", Description: "Главное меню"},
		{Command: "status", Description: "Ваша подписка и ссылка на канал"},
		{Command: "details", Description: "Дата окончания и ссылка на канал"},
		{Command: "cancel", Description: "Отменить подписку"},
		{Command: "help", Description: "Поддержка"},
	}
	adminCommands = []BotCommand{
		{Command: "payment_errors", Description: "Open payment errors"},
		{Command: "resolve_payment_error", Description: "Resolve a payment error: <id> [notes]"},
	}
)

// RegisterCommandMenu publishes the user command menu. Admins additionally see the
// operator commands in their private chat with the bot.
func (s *BotService) RegisterCommandMenu(ctx context.Context, adminIDs []int64) error {
	if err := s.SetMyCommands(ctx, userCommands); err != nil {
		return err
	}
	admin := make([]BotCommand, 0, len(userCommands)+len(adminCommands))
	admin = append(admin, userCommands...)
	admin = append(admin, adminCommands...)
	for _, id := range adminIDs {
		if err := s.SetMyCommandsForChat(ctx, id, admin); err != nil {
			return err
		}
	}
	return nil
}

// allowedUpdates lists the update kinds the bot consumes. Join requests are not
// delivered unless asked for explicitly.
var allowedUpdates = []string{"message", "callback_query", "chat_join_request", "pre_checkout_query"}

// GetUpdates retrieves updates using long polling. The context cancels the
// in-flight request on shutdown.
func (s *BotService) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	body := map[string]any{
		"timeout":         timeout,
		"allowed_updates": allowedUpdates,
	}
	if offset > 0 {
		body["offset"] = offset
	}

	// Long polling outlives the default client timeout.
	client := &http.Client{
		Timeout: time.Duration(timeout+10) * time.Second,
	}

	var updates []Update
	if err := s.call(ctx, client, "getUpdates", body, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends an HTML message. markup may be nil.
func (s *BotService) SendMessage(ctx context.Context, chatID, text string, markup any) error {
	body := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	if markup != nil {
		body["reply_markup"] = markup
	}
	return s.call(ctx, s.httpClient, "sendMessage", body, nil)
}

// AnswerCallbackQuery answers a callback query from an inline keyboard
func (s *BotService) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	body := map[string]any{
		"callback_query_id": callbackQueryID,
	}
	if text != "" {
		body["text"] = text
	}
	return s.call(ctx, s.httpClient, "answerCallbackQuery", body, nil)
}

// AnswerPreCheckoutQuery confirms or rejects checkout. errorMessage is shown to the
// buyer when ok is false.
func (s *BotService) AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error {
	body := map[string]any{
		"pre_checkout_query_id": queryID,
		"ok":                    ok,
	}
	if !ok && errorMessage != "" {
		body["error_message"] = errorMessage
	}
	return s.call(ctx, s.httpClient, "answerPreCheckoutQuery", body, nil)
}

// CreateChatInviteLink creates a named invite that expires at expireAt.
func (s *BotService) CreateChatInviteLink(ctx context.Context, chatID, name string, expireAt time.Time, createsJoinRequest bool) (*ChatInviteLink, error) {
	body := map[string]any{
		"chat_id":              chatID,
		"name":                 name,
		"expire_date":          expireAt.Unix(),
		"creates_join_request": createsJoinRequest,
	}
	var link ChatInviteLink
	if err := s.call(ctx, s.httpClient, "createChatInviteLink", body, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *BotService) RevokeChatInviteLink(ctx context.Context, chatID, inviteLink string) error {
	body := map[string]any{
		"chat_id":     chatID,
		"invite_link": inviteLink,
	}
	return s.call(ctx, s.httpClient, "revokeChatInviteLink", body, nil)
}

func (s *BotService) BanChatMember(ctx context.Context, chatID string, userID int64) error {
	body := map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}
	return s.call(ctx, s.httpClient, "banChatMember", body, nil)
}

// UnbanChatMember lifts a ban. With onlyIfBanned the call is a no-op for
// users who are not banned, so it never adds anyone back to the chat.
func (s *BotService) UnbanChatMember(ctx context.Context, chatID string, userID int64, onlyIfBanned bool) error {
	body := map[string]any{
		"chat_id":        chatID,
		"user_id":        userID,
		"only_if_banned": onlyIfBanned,
	}
	return s.call(ctx, s.httpClient, "unbanChatMember", body, nil)
}

func (s *BotService) GetChatMember(ctx context.Context, chatID string, userID int64) (*ChatMember, error) {
	body := map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}
	var member ChatMember
	if err := s.call(ctx, s.httpClient, "getChatMember", body, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *BotService) ApproveChatJoinRequest(ctx context.Context, chatID string, userID int64) error {
	body := map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}
	return s.call(ctx, s.httpClient, "approveChatJoinRequest", body, nil)
}

func (s *BotService) DeclineChatJoinRequest(ctx context.Context, chatID string, userID int64) error {
	body := map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}
	return s.call(ctx, s.httpClient, "declineChatJoinRequest", body, nil)
}

// GetMe returns the bot's own account.
func (s *BotService) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := s.call(ctx, s.httpClient, "getMe", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// call posts body to method and decodes the result into out when out is non-nil.
// API-level failures come back as *APIError.
func (s *BotService) call(ctx context.Context, client *http.Client, method string, body map[string]any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+method, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: failed to send request: %w", method, err)
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Method: method, ErrorCode: resp.StatusCode, Description: resp.Status}
		}
		return fmt.Errorf("telegram %s: failed to decode response: %w", method, err)
	}

	if !result.OK {
		apiErr := &APIError{
			Method:      method,
			ErrorCode:   result.ErrorCode,
			Description: result.Description,
		}
		if apiErr.ErrorCode == 0 {
			apiErr.ErrorCode = resp.StatusCode
		}
		if result.Parameters != nil {
			apiErr.RetryAfter = result.Parameters.RetryAfter
		}
		return apiErr
	}

	if out != nil && len(result.Result) > 0 {
		if err := json.Unmarshal(result.Result, out); err != nil {
			return fmt.Errorf("telegram %s: failed to decode result: %w", method, err)
		}
	}
	return nil
}

// ParseUserID converts a stored external user id into the integer the Bot API expects.
func ParseUserID(telegramUserID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(telegramUserID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChatID, telegramUserID)
	}
	return id, nil
}
