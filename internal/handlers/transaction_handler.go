package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"freedash/internal/config"
	"freedash/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TransactionHandler serves the stored transaction history.
type TransactionHandler struct {
	userService        services.UserServicer
	transactionService services.TransactionServicer
	exportService      services.ExportServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(userService services.UserServicer, transactionService services.TransactionServicer, exportService services.ExportServicer) *TransactionHandler {
	return &TransactionHandler{
		userService:        userService,
		transactionService: transactionService,
		exportService:      exportService,
	}
}

// GetUserTransactions lists stored transactions without contacting the bank.
// @Summary     List stored transactions
// @Description List the authenticated user's stored transactions, newest first
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  models.Transaction "Transactions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /transactions [get]
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	user, err := currentUser(c, h.userService)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.transactionService.GetUserTransactions(c.Request.Context(), user.ID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// ExportTransactions downloads the stored history as a spreadsheet.
// @Summary     Export transactions
// @Description Download the authenticated user's stored transactions as an xlsx workbook
// @Tags        transactions
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    BearerAuth
// @Success     200 {file}   file "Workbook"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /transactions/export [get]
func (h *TransactionHandler) ExportTransactions(c *gin.Context) {
	user, err := currentUser(c, h.userService)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.exportService.TransactionsXLSX(c.Request.Context(), user.ID, &buf); err != nil {
		respondWithError(c, err)
		return
	}

	filename := fmt.Sprintf("transactions-%s.xlsx", time.Now().UTC().Format(config.DateLayout))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
