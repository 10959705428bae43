package handler

import (
	"errors"
	"log/slog"

	"github.com/debit-ledger/internal/api_gateway/service"
	"github.com/debit-ledger/internal/domain/account"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler serves the ledger entries owned by an account
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// GetByID retrieves an account by its ID, returning 404 if not found
func (h *AccountHandler) GetByID(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}

	acc, err := h.accountService.GetAccount(c.Request.Context(), id)
	if err != nil {
		h.respondLookupError(c, id, "Failed to get account", err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// TrustLines lists the trust lines held by the account
func (h *AccountHandler) TrustLines(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}

	lines, err := h.accountService.ListTrustLines(c.Request.Context(), id)
	if err != nil {
		h.respondLookupError(c, id, "Failed to list trust lines", err)
		return
	}

	response := make([]TrustLineResponse, 0, len(lines))
	for _, tl := range lines {
		response = append(response, mapTrustLineToResponse(tl))
	}
	RespondOK(c, response)
}

// Debits lists the debit authorizations the account granted
func (h *AccountHandler) Debits(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}

	auths, err := h.accountService.ListDebits(c.Request.Context(), id)
	if err != nil {
		h.respondLookupError(c, id, "Failed to list debit authorizations", err)
		return
	}

	response := make([]DebitResponse, 0, len(auths))
	for _, a := range auths {
		response = append(response, mapDebitToResponse(a))
	}
	RespondOK(c, response)
}

// CountDebits reports the number of stored debit authorizations
func (h *AccountHandler) CountDebits(c *gin.Context) {
	n, err := h.accountService.CountDebits(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to count debit authorizations", "error", err)
		RespondInternalError(c)
		return
	}
	RespondOK(c, DebitCountResponse{Count: n})
}

func (h *AccountHandler) accountID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid account ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *AccountHandler) respondLookupError(c *gin.Context, id uuid.UUID, msg string, err error) {
	var accNotFound account.ErrAccountNotFound
	if errors.As(err, &accNotFound) {
		RespondNotFound(c, "Account not found")
		return
	}
	h.logger.Error(msg, "id", id.String(), "error", err)
	RespondInternalError(c)
}
