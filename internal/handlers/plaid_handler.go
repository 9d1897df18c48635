package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "freedash/internal/errors"
	"freedash/internal/models"
	"freedash/internal/services"
)

// PlaidHandler handles bank linking and transaction sync requests.
type PlaidHandler struct {
	userService  services.UserServicer
	syncService  services.SyncServicer
	auditService services.AuditServicer
}

// NewPlaidHandler creates a new PlaidHandler.
func NewPlaidHandler(userService services.UserServicer, syncService services.SyncServicer, auditService services.AuditServicer) *PlaidHandler {
	return &PlaidHandler{userService: userService, syncService: syncService, auditService: auditService}
}

// ExchangePublicTokenRequest carries the token produced by the client-side link flow.
type ExchangePublicTokenRequest struct {
	PublicToken string `json:"public_token" binding:"required,max=512"`
}

// TransactionsResponse is returned by GET /plaid/transactions.
type TransactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
	Summary      *services.SyncResult `json:"summary"`
}

// CreateLinkToken starts the bank linking flow.
// @Summary     Create a link token
// @Description Create a Plaid Link token for the authenticated user
// @Tags        plaid
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} aggregator.LinkToken "Link token"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Insufficient permissions"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     500 {object} ErrorResponse "Banking provider error"
// @Router      /plaid/link-token [post]
func (h *PlaidHandler) CreateLinkToken(c *gin.Context) {
	user, err := currentUser(c, h.userService)
	if err != nil {
		respondWithError(c, err)
		return
	}

	token, err := h.syncService.CreateLinkToken(c.Request.Context(), user)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// ExchangePublicToken links a bank connection and imports its data.
// @Summary     Exchange a public token
// @Description Exchange a Plaid public token, store the item and import its accounts and transactions
// @Tags        plaid
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ExchangePublicTokenRequest true "Public token"
// @Success     200 {object} services.ExchangeResult "Linked item with imported data"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Insufficient permissions"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     409 {object} ErrorResponse "Item linked by another user"
// @Failure     500 {object} ErrorResponse "Banking provider error"
// @Router      /plaid/exchange-public-token [post]
func (h *PlaidHandler) ExchangePublicToken(c *gin.Context) {
	var req ExchangePublicTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := currentUser(c, h.userService)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// The exchange is not repeatable, so finish it even if the client goes away.
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.syncService.ExchangeAndSync(ctx, user, req.PublicToken)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(user.ID, services.AuditPlaidItemLinked, "plaid_item", result.Item.ID, c.ClientIP(),
		map[string]any{
			"item_id":              result.Item.ItemID,
			"accounts_created":     result.Summary.AccountsCreated,
			"transactions_created": result.Summary.TransactionsCreated,
		})

	c.JSON(http.StatusOK, result)
}

// GetTransactions refreshes every linked item and returns the stored history.
// @Summary     Refresh and list transactions
// @Description Re-import the sync window for every linked item and return all stored transactions, newest first
// @Tags        plaid
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} TransactionsResponse "Transactions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Insufficient permissions"
// @Failure     404 {object} ErrorResponse "No linked bank connection"
// @Failure     500 {object} ErrorResponse "Banking provider error"
// @Router      /plaid/transactions [get]
func (h *PlaidHandler) GetTransactions(c *gin.Context) {
	user, err := currentUser(c, h.userService)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	summary, transactions, err := h.syncService.RefreshTransactions(ctx, user)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, TransactionsResponse{Transactions: transactions, Summary: summary})
}
