package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/splitledger/internal/api_gateway/service"
	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/shared"
	"github.com/splitledger/internal/domain/split"
)

// SplitHandler handles HTTP requests for split record operations
type SplitHandler struct {
	splitService service.SplitService
	logger       *slog.Logger
}

// NewSplitHandler creates a new split handler
func NewSplitHandler(logger *slog.Logger, splitService service.SplitService) *SplitHandler {
	return &SplitHandler{
		splitService: splitService,
		logger:       logger,
	}
}

// Preview computes a split's detail set without persisting anything, letting
// clients show the per-member amounts before the split is saved
func (h *SplitHandler) Preview(c *gin.Context) {
	var req PreviewSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	participants, err := mapParticipantInputs(req.Participants)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	details, err := h.splitService.PreviewSplit(c.Request.Context(), req.Total, shared.SplitType(req.Type), participants)
	if err != nil {
		h.respondSplitError(c, err)
		return
	}

	RespondOK(c, SplitPreviewResponse{
		Total:   req.Total,
		Type:    req.Type,
		Details: mapDetailsToResponse(details),
	})
}

// Create records how a shared transaction is divided among ledger members
func (h *SplitHandler) Create(c *gin.Context) {
	var req CreateSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	transactionID, _ := uuid.Parse(req.TransactionID)
	ledgerID, _ := uuid.Parse(req.LedgerID)
	payerID, _ := uuid.Parse(req.PayerID)

	participants, err := mapParticipantInputs(req.Participants)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	record, err := h.splitService.CreateSplit(
		c.Request.Context(),
		transactionID,
		ledgerID,
		payerID,
		req.Total,
		req.Currency,
		shared.SplitType(req.Type),
		participants,
	)
	if err != nil {
		h.respondSplitError(c, err)
		return
	}

	RespondCreated(c, mapSplitToResponse(record))
}

// GetByID retrieves split details by ID, returns 404 if not found
func (h *SplitHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	record, err := h.splitService.GetSplitByID(c.Request.Context(), id)
	if err != nil {
		h.respondSplitError(c, err)
		return
	}

	RespondOK(c, mapSplitToResponse(record))
}

// GetByTransactionID retrieves the split covering a transaction
func (h *SplitHandler) GetByTransactionID(c *gin.Context) {
	idParam := c.Param("id")
	transactionID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid transaction ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	record, err := h.splitService.GetSplitByTransactionID(c.Request.Context(), transactionID)
	if err != nil {
		h.respondSplitError(c, err)
		return
	}
	if record == nil {
		RespondNotFound(c, "No split recorded for this transaction")
		return
	}

	RespondOK(c, mapSplitToResponse(record))
}

// ListByLedger retrieves paginated split history for a ledger
func (h *SplitHandler) ListByLedger(c *gin.Context) {
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

	records, total, err := h.splitService.ListSplitsByLedger(
		c.Request.Context(),
		ledgerID,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		h.logger.Error("Failed to list splits", "ledger_id", ledgerIDParam, "error", err)
		RespondInternalError(c)
		return
	}

	var splits []SplitResponse
	for _, record := range records {
		splits = append(splits, mapSplitToResponse(record))
	}

	RespondWithPaginatedData(c, http.StatusOK, splits, pagination.Page, pagination.PerPage, int(total))
}

// Confirm transitions the split to Confirmed and applies it to the ledger's
// debt relations
func (h *SplitHandler) Confirm(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	record, err := h.splitService.ConfirmSplit(c.Request.Context(), id)
	if err != nil {
		h.respondSplitError(c, err)
		return
	}

	RespondOK(c, mapSplitToResponse(record))
}

// MarkPaid transitions the split from Confirmed to Paid
func (h *SplitHandler) MarkPaid(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	record, err := h.splitService.MarkSplitPaid(c.Request.Context(), id)
	if err != nil {
		h.respondSplitError(c, err)
		return
	}

	RespondOK(c, mapSplitToResponse(record))
}

// Cancel transitions the split to Cancelled, reversing its debt effect when
// it had been confirmed
func (h *SplitHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	record, err := h.splitService.CancelSplit(c.Request.Context(), id)
	if err != nil {
		h.respondSplitError(c, err)
		return
	}

	RespondOK(c, mapSplitToResponse(record))
}

// Update replaces the split's whole detail configuration
func (h *SplitHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	participants, err := mapParticipantInputs(req.Participants)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	record, err := h.splitService.UpdateSplitDetails(
		c.Request.Context(),
		id,
		req.Total,
		shared.SplitType(req.Type),
		participants,
	)
	if err != nil {
		h.respondSplitError(c, err)
		return
	}

	RespondOK(c, mapSplitToResponse(record))
}

// Delete removes the split outright, reversing its debt effect when it had
// been confirmed. Used when the parent transaction is deleted or un-shared.
func (h *SplitHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.splitService.DeleteSplit(c.Request.Context(), id); err != nil {
		h.respondSplitError(c, err)
		return
	}

	RespondNoContent(c)
}

func (h *SplitHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid split ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid split ID")
		return uuid.Nil, false
	}
	return id, true
}

// respondSplitError maps domain errors to HTTP status codes
func (h *SplitHandler) respondSplitError(c *gin.Context, err error) {
	var notFound split.ErrSplitNotFound
	var badTransition split.ErrInvalidStatusTransition
	var badConfig split.ErrInvalidSplitConfig
	var pairLocked debt.ErrPairLocked

	switch {
	case errors.As(err, &notFound):
		RespondNotFound(c, "Split not found")
	case errors.As(err, &badTransition):
		RespondConflict(c, err.Error())
	case errors.As(err, &pairLocked):
		RespondConflict(c, err.Error())
	case errors.As(err, &badConfig),
		errors.Is(err, split.ErrInvalidTotal),
		errors.Is(err, split.ErrInvalidCurrencyFormat),
		errors.Is(err, split.ErrDetailSumMismatch),
		errors.Is(err, split.ErrPayerNotSet):
		RespondBadRequest(c, err.Error())
	default:
		h.logger.Error("Split operation failed", "error", err)
		RespondInternalError(c)
	}
}

func mapParticipantInputs(requests []SplitParticipantRequest) ([]service.SplitInput, error) {
	inputs := make([]service.SplitInput, 0, len(requests))
	for _, p := range requests {
		memberID, err := uuid.Parse(p.MemberID)
		if err != nil {
			return nil, errors.New("invalid participant member ID: " + p.MemberID)
		}
		inputs = append(inputs, service.SplitInput{
			MemberID:   memberID,
			Amount:     p.Amount,
			Percentage: p.Percentage,
			Weight:     p.Weight,
		})
	}
	return inputs, nil
}

func mapDetailsToResponse(details []split.Detail) []SplitDetailResponse {
	mapped := make([]SplitDetailResponse, len(details))
	for i, d := range details {
		detail := SplitDetailResponse{
			MemberID:   d.MemberID.String(),
			Amount:     d.Amount,
			Percentage: decimalString(d.Percentage),
			Weight:     decimalString(d.Weight),
			IsPaid:     d.IsPaid,
		}
		if d.PaidAt != nil {
			detail.PaidAt = d.PaidAt.Format(time.RFC3339)
		}
		mapped[i] = detail
	}
	return mapped
}

// mapSplitToResponse maps a split record to a response DTO
func mapSplitToResponse(record *split.Record) SplitResponse {
	details := mapDetailsToResponse(record.Details)

	response := SplitResponse{
		ID:            record.ID.String(),
		TransactionID: record.TransactionID.String(),
		LedgerID:      record.LedgerID.String(),
		PayerID:       record.PayerID.String(),
		Total:         record.Total,
		Currency:      record.Currency,
		Type:          string(record.Type),
		Status:        string(record.Status),
		Details:       details,
		CreatedAt:     record.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     record.UpdatedAt.Format(time.RFC3339),
	}
	if record.PaidAt != nil {
		response.PaidAt = record.PaidAt.Format(time.RFC3339)
	}
	return response
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
