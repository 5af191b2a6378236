package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fleetops/finance-ledger/internal/api/middleware"
	"github.com/fleetops/finance-ledger/internal/domain/ledger"
	"github.com/fleetops/finance-ledger/internal/engine/service"
)

// LedgerHandler handles HTTP requests for ledger engine operations
type LedgerHandler struct {
	ledgerService service.LedgerService
	logger        *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(logger *slog.Logger, ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// CreateCharge creates an outstanding charge owed by a customer
func (h *LedgerHandler) CreateCharge(c *gin.Context) {
	var req CreateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	params, err := h.chargeParams(c, req.CustomerID, req.Amount, req.Category, req.Description, req.Date, req.Actor)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	entry, err := h.ledgerService.CreateOutstandingCharge(c.Request.Context(), *params)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapEntryToResponse(entry))
}

// CreateCredit creates a pre-paid credit balance owned by a customer
func (h *LedgerHandler) CreateCredit(c *gin.Context) {
	var req CreateCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	params, err := h.chargeParams(c, req.CustomerID, req.Amount, req.Category, req.Description, req.Date, req.Actor)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	entry, err := h.ledgerService.CreateCredit(c.Request.Context(), *params)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapEntryToResponse(entry))
}

// BulkCharge applies one charge amount to a set of customers atomically
func (h *LedgerHandler) BulkCharge(c *gin.Context) {
	var req BulkChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, err := ParseAmount(req.AmountPerCustomer)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	customerIDs := make([]uuid.UUID, 0, len(req.CustomerIDs))
	for _, raw := range req.CustomerIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondBadRequest(c, "Invalid customer ID: "+raw)
			return
		}
		customerIDs = append(customerIDs, id)
	}

	charges, err := h.ledgerService.BulkCharge(c.Request.Context(), service.BulkChargeParams{
		CustomerIDs:       customerIDs,
		AmountPerCustomer: amount,
		Category:          req.Category,
		Description:       req.Description,
		Date:              date,
		CorrelationID:     middleware.GetCorrelationID(c),
		Actor:             req.Actor,
	})
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	response := EntryListResponse{Entries: make([]EntryResponse, 0, len(charges))}
	for _, entry := range charges {
		response.Entries = append(response.Entries, mapEntryToResponse(entry))
	}
	RespondCreated(c, response)
}

// RecordPayment records a payment against an outstanding charge
func (h *LedgerHandler) RecordPayment(c *gin.Context) {
	entryID, ok := h.entryIDParam(c)
	if !ok {
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, err := ParseAmount(req.Amount)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.ledgerService.RecordPayment(c.Request.Context(), service.PaymentParams{
		EntryID:       entryID,
		Amount:        amount,
		Method:        req.Method,
		Reference:     req.Reference,
		UseCredit:     req.UseCredit,
		Date:          date,
		CorrelationID: middleware.GetCorrelationID(c),
		Actor:         req.Actor,
	})
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapPaymentToRecord(*payment))
}

// Refund returns part of a credit entry's balance as cash
func (h *LedgerHandler) Refund(c *gin.Context) {
	entryID, ok := h.entryIDParam(c)
	if !ok {
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, err := ParseAmount(req.Amount)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	refund, err := h.ledgerService.RefundCredit(c.Request.Context(), service.RefundParams{
		EntryID:       entryID,
		Amount:        amount,
		Reason:        req.Reason,
		Date:          date,
		CorrelationID: middleware.GetCorrelationID(c),
		Actor:         req.Actor,
	})
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapRefundToRecord(*refund))
}

// Delete reverses an entry's account effects and removes it
func (h *LedgerHandler) Delete(c *gin.Context) {
	entryID, ok := h.entryIDParam(c)
	if !ok {
		return
	}

	err := h.ledgerService.DeleteEntry(c.Request.Context(), entryID, middleware.GetCorrelationID(c), c.GetHeader("X-Actor"))
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondNoContent(c)
}

// GetByID retrieves a ledger entry, returning 404 if not found
func (h *LedgerHandler) GetByID(c *gin.Context) {
	entryID, ok := h.entryIDParam(c)
	if !ok {
		return
	}

	entry, err := h.ledgerService.GetEntry(c.Request.Context(), entryID)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// ListByCustomer retrieves paginated ledger entries for a customer
func (h *LedgerHandler) ListByCustomer(c *gin.Context) {
	customerID, ok := h.customerIDParam(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	offset := (pagination.Page - 1) * pagination.PerPage
	entries, total, err := h.ledgerService.ListCustomerEntries(c.Request.Context(), customerID, pagination.PerPage, offset)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	responses := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// GetCreditBalance reports the customer's total remaining credit
func (h *LedgerHandler) GetCreditBalance(c *gin.Context) {
	customerID, ok := h.customerIDParam(c)
	if !ok {
		return
	}

	balance, err := h.ledgerService.GetCreditBalance(c.Request.Context(), customerID)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondOK(c, CreditBalanceResponse{
		CustomerID: customerID.String(),
		Balance:    FormatAmount(balance),
	})
}

func (h *LedgerHandler) chargeParams(c *gin.Context, customerID, amount, category, description, date, actor string) (*service.ChargeParams, error) {
	id, err := uuid.Parse(customerID)
	if err != nil {
		return nil, errors.New("invalid customer ID")
	}
	pence, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	when, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	return &service.ChargeParams{
		CustomerID:    id,
		Amount:        pence,
		Category:      category,
		Description:   description,
		Date:          when,
		CorrelationID: middleware.GetCorrelationID(c),
		Actor:         actor,
	}, nil
}

func (h *LedgerHandler) entryIDParam(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid entry ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid entry ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *LedgerHandler) customerIDParam(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid customer ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid customer ID")
		return uuid.Nil, false
	}
	return id, true
}

// respondLedgerError maps engine errors onto HTTP statuses: validation
// failures 400, missing entries 404, exhausted conflict retries 409,
// anything else 500.
func (h *LedgerHandler) respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrEntryNotFound{}):
		RespondNotFound(c, "Ledger entry not found")
	case errors.Is(err, service.ErrRetriesExhausted{}):
		RespondConflict(c, "Concurrent modification detected, please retry")
	case isValidationError(err):
		RespondBadRequest(c, err.Error())
	default:
		h.logger.Error("Ledger operation failed", "error", err)
		RespondInternalError(c)
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, ledger.ErrInvalidAmount) ||
		errors.Is(err, ledger.ErrPaymentExceedsRemaining) ||
		errors.Is(err, ledger.ErrRefundExceedsRemaining) ||
		errors.Is(err, ledger.ErrNotOutstanding) ||
		errors.Is(err, ledger.ErrNotCredit) ||
		errors.Is(err, ledger.ErrMissingCustomer) ||
		errors.Is(err, ledger.ErrInsufficientCredit) ||
		errors.Is(err, service.ErrCustomerChargeFailed{})
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	when, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.New("invalid date, expected RFC3339")
	}
	return when, nil
}

// mapEntryToResponse maps a ledger entry to a response DTO
func mapEntryToResponse(entry *ledger.Entry) EntryResponse {
	response := EntryResponse{
		ID:            entry.ID.String(),
		Kind:          string(entry.Kind),
		Amount:        FormatAmount(entry.Amount),
		PaymentStatus: string(entry.Status),
		Category:      entry.Category,
		Description:   entry.Description,
		Date:          entry.Date.Format(time.RFC3339),
		GroupID:       entry.GroupID,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     entry.UpdatedAt.Format(time.RFC3339),
	}

	if entry.Kind == ledger.KindOutstanding || entry.Kind == ledger.KindCredit {
		response.PaidAmount = FormatAmount(entry.PaidAmount)
		response.RemainingAmount = FormatAmount(entry.RemainingAmount)
	}
	if entry.CustomerID != nil {
		response.CustomerID = entry.CustomerID.String()
	}
	if entry.AccountFrom != nil {
		response.AccountFrom = entry.AccountFrom.String()
	}
	if entry.AccountTo != nil {
		response.AccountTo = entry.AccountTo.String()
	}
	for _, p := range entry.PaymentHistory {
		response.PaymentHistory = append(response.PaymentHistory, mapPaymentToRecord(p))
	}
	for _, r := range entry.RefundHistory {
		response.RefundHistory = append(response.RefundHistory, mapRefundToRecord(r))
	}

	return response
}

func mapPaymentToRecord(p ledger.Payment) PaymentRecord {
	return PaymentRecord{
		Amount:    FormatAmount(p.Amount),
		Date:      p.Date.Format(time.RFC3339),
		Method:    p.Method,
		Reference: p.Reference,
		Actor:     p.Actor,
	}
}

func mapRefundToRecord(r ledger.Refund) RefundRecord {
	return RefundRecord{
		Amount: FormatAmount(r.Amount),
		Date:   r.Date.Format(time.RFC3339),
		Reason: r.Reason,
		Actor:  r.Actor,
	}
}
