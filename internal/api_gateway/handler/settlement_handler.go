package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/splitledger/internal/api_gateway/middleware"
	"github.com/splitledger/internal/api_gateway/service"
	"github.com/splitledger/internal/domain/settlement"
	"github.com/splitledger/internal/domain/shared"
)

// SettlementHandler handles HTTP requests for settlement operations
type SettlementHandler struct {
	settlementService service.SettlementService
	logger            *slog.Logger
}

// NewSettlementHandler creates a new settlement handler
func NewSettlementHandler(logger *slog.Logger, settlementService service.SettlementService) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
		logger:            logger,
	}
}

// Preview computes the optimized transfer plan for the ledger's current
// active debts without persisting anything
func (h *SettlementHandler) Preview(c *gin.Context) {
	ledgerIDParam := c.Param("id")
	ledgerID, err := uuid.Parse(ledgerIDParam)
	if err != nil {
		h.logger.Error("Invalid ledger ID", "ledger_id", ledgerIDParam, "error", err)
		RespondBadRequest(c, "Invalid ledger ID")
		return
	}

	currency := c.DefaultQuery("currency", "USD")
	if len(currency) != 3 {
		RespondBadRequest(c, "Invalid currency code")
		return
	}

	result, err := h.settlementService.PreviewSettlement(c.Request.Context(), ledgerID, currency)
	if err != nil {
		var unbalanced settlement.ErrUnbalancedLedger
		if !errors.As(err, &unbalanced) {
			h.logger.Error("Failed to preview settlement", "ledger_id", ledgerIDParam, "error", err)
			RespondInternalError(c)
			return
		}
		// The plan is still served; the violation is flagged in the body
	}

	RespondOK(c, mapResultToPreviewResponse(result))
}

// Create snapshots the ledger's active debts into a Pending settlement
func (h *SettlementHandler) Create(c *gin.Context) {
	var req CreateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ledgerID, _ := uuid.Parse(req.LedgerID)
	initiatedBy, _ := uuid.Parse(req.InitiatedBy)

	periodStart, periodEnd, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	record, err := h.settlementService.CreateSettlement(c.Request.Context(), ledgerID, req.Currency, initiatedBy, periodStart, periodEnd)
	if err != nil {
		h.respondSettlementError(c, err)
		return
	}

	RespondCreated(c, mapSettlementToResponse(record))
}

// Run publishes an asynchronous settlement cycle command and returns 202.
// The settlement processor performs the snapshot, start, and completion.
func (h *SettlementHandler) Run(c *gin.Context) {
	var req RunSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ledgerID, _ := uuid.Parse(req.LedgerID)
	initiatedBy, _ := uuid.Parse(req.InitiatedBy)

	request := &shared.SettlementRunRequest{
		RequestID:     uuid.New(),
		LedgerID:      ledgerID,
		Currency:      req.Currency,
		InitiatedBy:   initiatedBy,
		CorrelationID: middleware.GetCorrelationID(c),
		Timestamp:     time.Now(),
	}

	requestID, err := h.settlementService.RequestSettlementRun(c.Request.Context(), request)
	if err != nil {
		h.logger.Error("Failed to request settlement run", "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"request_id": requestID,
		"status":     "PENDING",
	})
}

// GetByID retrieves settlement details by ID, returns 404 if not found
func (h *SettlementHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	record, err := h.settlementService.GetSettlementByID(c.Request.Context(), id)
	if err != nil {
		h.respondSettlementError(c, err)
		return
	}

	RespondOK(c, mapSettlementToResponse(record))
}

// ListByLedger retrieves paginated settlement history for a ledger
func (h *SettlementHandler) ListByLedger(c *gin.Context) {
	ledgerIDParam := c.Param("id")
	ledgerID, err := uuid.Parse(ledgerIDParam)
	if err != nil {
		h.logger.Error("Invalid ledger ID", "ledger_id", ledgerIDParam, "error", err)
		RespondBadRequest(c, "Invalid ledger ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	records, total, err := h.settlementService.ListSettlementsByLedger(
		c.Request.Context(),
		ledgerID,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to list settlements", "ledger_id", ledgerIDParam, "error", err)
		RespondInternalError(c)
		return
	}

	var settlements []SettlementResponse
	for _, record := range records {
		settlements = append(settlements, mapSettlementToResponse(record))
	}

	RespondWithPaginatedData(c, http.StatusOK, settlements, pagination.Page, pagination.PerPage, int(total))
}

// Start transitions the settlement to InProgress, locking its debts
func (h *SettlementHandler) Start(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	record, err := h.settlementService.StartSettlement(c.Request.Context(), id)
	if err != nil {
		h.respondSettlementError(c, err)
		return
	}

	RespondOK(c, mapSettlementToResponse(record))
}

// Complete marks the settlement and its referenced debts resolved
func (h *SettlementHandler) Complete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req CompleteSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	completedBy, _ := uuid.Parse(req.CompletedBy)

	record, err := h.settlementService.CompleteSettlement(c.Request.Context(), id, completedBy)
	if err != nil {
		h.respondSettlementError(c, err)
		return
	}

	RespondOK(c, mapSettlementToResponse(record))
}

// Cancel cancels a Pending or InProgress settlement
func (h *SettlementHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	record, err := h.settlementService.CancelSettlement(c.Request.Context(), id)
	if err != nil {
		h.respondSettlementError(c, err)
		return
	}

	RespondOK(c, mapSettlementToResponse(record))
}

func (h *SettlementHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid settlement ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid settlement ID")
		return uuid.Nil, false
	}
	return id, true
}

// respondSettlementError maps domain errors to HTTP status codes
func (h *SettlementHandler) respondSettlementError(c *gin.Context, err error) {
	var notFound settlement.ErrSettlementNotFound
	var badTransition settlement.ErrInvalidStatusTransition
	var stale settlement.ErrStaleSettlement
	var nothing settlement.ErrNothingToSettle

	switch {
	case errors.As(err, &notFound):
		RespondNotFound(c, "Settlement not found")
	case errors.As(err, &badTransition):
		RespondConflict(c, err.Error())
	case errors.As(err, &stale):
		RespondConflict(c, err.Error())
	case errors.As(err, &nothing):
		RespondBadRequest(c, err.Error())
	default:
		h.logger.Error("Settlement operation failed", "error", err)
		RespondInternalError(c)
	}
}

// parsePeriod parses the optional RFC3339 period bounds, defaulting to the
// last 30 days ending now
func parsePeriod(startRaw, endRaw string) (time.Time, time.Time, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -30)

	var err error
	if startRaw != "" {
		if start, err = time.Parse(time.RFC3339, startRaw); err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid period_start: must be RFC3339")
		}
	}
	if endRaw != "" {
		if end, err = time.Parse(time.RFC3339, endRaw); err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid period_end: must be RFC3339")
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("period_end must not precede period_start")
	}
	return start, end, nil
}

func mapTransfersToResponse(transfers []settlement.Transfer) []TransferResponse {
	mapped := make([]TransferResponse, len(transfers))
	for i, t := range transfers {
		mapped[i] = TransferResponse{
			FromMemberID: t.FromMemberID.String(),
			ToMemberID:   t.ToMemberID.String(),
			FromName:     t.FromName,
			ToName:       t.ToName,
			Amount:       t.Amount,
		}
	}
	return mapped
}

// mapResultToPreviewResponse maps an optimizer result to a preview DTO
func mapResultToPreviewResponse(result *settlement.Result) SettlementPreviewResponse {
	return SettlementPreviewResponse{
		Transfers:          mapTransfersToResponse(result.Transfers),
		MemberBalances:     mapSummariesToResponse(result.MemberSummaries),
		TransferCount:      result.TransferCount,
		EstimatedSavings:   result.EstimatedSavings,
		IntegrityViolation: result.Residual != 0,
		Residual:           result.Residual,
	}
}

// mapSettlementToResponse maps a settlement record to a response DTO
func mapSettlementToResponse(record *settlement.Record) SettlementResponse {
	participants := make([]string, len(record.ParticipantIDs))
	for i, id := range record.ParticipantIDs {
		participants[i] = id.String()
	}

	response := SettlementResponse{
		ID:             record.ID.String(),
		LedgerID:       record.LedgerID.String(),
		Currency:       record.Currency,
		PeriodStart:    record.PeriodStart.Format(time.RFC3339),
		PeriodEnd:      record.PeriodEnd.Format(time.RFC3339),
		ParticipantIDs: participants,
		MemberBalances: mapSummariesToResponse(record.MemberSummaries),
		Transfers:      mapTransfersToResponse(record.Transfers),
		TotalAmount:    record.TotalAmount,
		Residual:       record.Residual,
		Status:         string(record.Status),
		InitiatedBy:    record.InitiatedBy.String(),
		CreatedAt:      record.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      record.UpdatedAt.Format(time.RFC3339),
	}
	if record.CompletedBy != nil {
		response.CompletedBy = record.CompletedBy.String()
	}
	if record.CompletedAt != nil {
		response.CompletedAt = record.CompletedAt.Format(time.RFC3339)
	}
	return response
}
