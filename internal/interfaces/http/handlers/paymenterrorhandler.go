package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/channelgate/channelgate/internal/application/payment/usecases"
	"github.com/channelgate/channelgate/internal/domain/subscription"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
	"github.com/channelgate/channelgate/internal/shared/utils"
)

// PaymentErrorHandler exposes operator remediation of failed payment activations.
type PaymentErrorHandler struct {
	listUC    listPaymentErrorsUseCase
	resolveUC resolvePaymentErrorUseCase
	logger    logger.Interface
}

func NewPaymentErrorHandler(
	listUC listPaymentErrorsUseCase,
	resolveUC resolvePaymentErrorUseCase,
	logger logger.Interface,
) *PaymentErrorHandler {
	return &PaymentErrorHandler{
		listUC:    listUC,
		resolveUC: resolveUC,
		logger:    logger,
	}
}

type PaymentErrorResponse struct {
	ID              uint       `json:"id"`
	TelegramUserID  string     `json:"telegram_user_id"`
	PlanID          *uint      `json:"plan_id,omitempty"`
	ChargeID        string     `json:"charge_id,omitempty"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency,omitempty"`
	InvoicePayload  string     `json:"invoice_payload,omitempty"`
	ErrorMessage    string     `json:"error_message"`
	PaymentTime     time.Time  `json:"payment_time"`
	Resolved        bool       `json:"resolved"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

func toPaymentErrorResponse(pe *subscription.PaymentError) PaymentErrorResponse {
	return PaymentErrorResponse{
		ID:              pe.ID(),
		TelegramUserID:  pe.TelegramUserID(),
		PlanID:          pe.PlanID(),
		ChargeID:        pe.ChargeID(),
		Amount:          pe.Amount(),
		Currency:        pe.Currency(),
		InvoicePayload:  pe.InvoicePayload(),
		ErrorMessage:    pe.ErrorMessage(),
		PaymentTime:     pe.PaymentTime(),
		Resolved:        pe.IsResolved(),
		ResolutionNotes: pe.ResolutionNotes(),
		ResolvedAt:      pe.ResolvedAt(),
	}
}

type ResolvePaymentErrorRequest struct {
	Notes string `json:"notes" binding:"max=1000"`
}

// List returns unresolved payment errors, newest first.
// GET /api/admin/payment-errors?limit=N
func (h *PaymentErrorHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.ErrorResponseWithError(c, apperrors.NewValidationError("invalid limit", raw))
			return
		}
		limit = n
	}

	list, err := h.listUC.Execute(c.Request.Context(), limit)
	if err != nil {
		h.logger.Errorw("failed to list payment errors", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	items := make([]PaymentErrorResponse, 0, len(list))
	for _, pe := range list {
		items = append(items, toPaymentErrorResponse(pe))
	}
	utils.ListSuccessResponse(c, items, len(items))
}

// Resolve closes a payment error and notifies the payer.
// POST /api/admin/payment-errors/:id/resolve
func (h *PaymentErrorHandler) Resolve(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.ErrorResponseWithError(c, apperrors.NewValidationError("invalid payment error id", c.Param("id")))
		return
	}

	var req ResolvePaymentErrorRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warnw("invalid resolve request", "error", err, "payment_error_id", id)
			utils.ErrorResponseWithError(c, apperrors.NewValidationError("invalid request body", err.Error()))
			return
		}
	}

	pe, err := h.resolveUC.Execute(c.Request.Context(), usecases.ResolvePaymentErrorCommand{
		PaymentErrorID: uint(id),
		Notes:          req.Notes,
	})
	switch {
	case errors.Is(err, subscription.ErrPaymentErrorNotFound):
		utils.ErrorResponseWithError(c, apperrors.NewNotFoundError(err.Error()))
		return
	case errors.Is(err, subscription.ErrPaymentErrorResolved):
		utils.ErrorResponseWithError(c, apperrors.NewConflictError(err.Error()))
		return
	case err != nil:
		h.logger.Errorw("failed to resolve payment error", "error", err, "payment_error_id", id)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "payment error resolved", toPaymentErrorResponse(pe))
}
