package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/debit-ledger/internal/api_gateway/middleware"
	"github.com/debit-ledger/internal/api_gateway/service"
	"github.com/debit-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles HTTP requests for transaction operations
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
	now                func() time.Time
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
		now:                time.Now,
	}
}

// Submit accepts a transaction envelope for asynchronous processing. A repeated
// idempotency key returns the archived result instead of publishing again.
func (h *TransactionHandler) Submit(c *gin.Context) {
	var req SubmitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	envelope, err := req.ToEnvelope(middleware.GetCorrelationID(c), h.now())
	if err != nil {
		h.logger.Warn("Transaction request cannot be encoded", "error", err)
		RespondUnprocessable(c, err.Error())
		return
	}

	transactionID, existing, err := h.transactionService.SubmitTransaction(c.Request.Context(), envelope)
	if err != nil {
		if isEnvelopeError(err) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to submit transaction", "error", err)
		RespondInternalError(c)
		return
	}
	if existing != nil {
		RespondOK(c, mapRecordToResponse(existing))
		return
	}

	RespondAccepted(c, gin.H{
		"transaction_id":  transactionID.String(),
		"idempotency_key": req.IdempotencyKey,
		"status":          string(shared.TransactionStatusPending),
	})
}

// GetByID retrieves a transaction result by its ID, returns 404 until it is archived
func (h *TransactionHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid transaction ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	record, err := h.transactionService.GetTransactionByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get transaction", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	if record == nil {
		RespondNotFound(c, "Transaction not found")
		return
	}

	RespondOK(c, mapRecordToResponse(record))
}

// GetByAccountID retrieves paginated transaction results for a source account
func (h *TransactionHandler) GetByAccountID(c *gin.Context) {
	accountIDParam := c.Param("id")
	accountID, err := uuid.Parse(accountIDParam)
	if err != nil {
		h.logger.Error("Invalid account ID", "account_id", accountIDParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	records, total, err := h.transactionService.GetTransactionsByAccountID(
		c.Request.Context(),
		accountID,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to get transactions", "account_id", accountIDParam, "error", err)
		RespondInternalError(c)
		return
	}

	transactions := make([]TransactionResponse, 0, len(records))
	for _, record := range records {
		transactions = append(transactions, mapRecordToResponse(record))
	}

	RespondWithPaginatedData(c, http.StatusOK, transactions, pagination.Page, pagination.PerPage, total)
}

func isEnvelopeError(err error) bool {
	return errors.Is(err, shared.ErrEmptyEnvelope) ||
		errors.Is(err, shared.ErrMissingSource) ||
		errors.Is(err, shared.ErrUnknownOperation) ||
		errors.Is(err, shared.ErrTooManyOperations) ||
		errors.Is(err, shared.ErrMissingTransactionID)
}
