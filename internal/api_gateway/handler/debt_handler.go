package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/splitledger/internal/api_gateway/service"
	"github.com/splitledger/internal/domain/debt"
	"github.com/splitledger/internal/domain/settlement"
)

// DebtHandler handles HTTP requests for debt relation queries
type DebtHandler struct {
	debtService service.DebtService
	logger      *slog.Logger
}

// NewDebtHandler creates a new debt handler
func NewDebtHandler(logger *slog.Logger, debtService service.DebtService) *DebtHandler {
	return &DebtHandler{
		debtService: debtService,
		logger:      logger,
	}
}

// GetActiveDebts retrieves the ledger's active debt relations. The currency
// query parameter defaults to USD.
func (h *DebtHandler) GetActiveDebts(c *gin.Context) {
	ledgerID, currency, ok := h.parseScope(c)
	if !ok {
		return
	}

	relations, err := h.debtService.GetActiveDebts(c.Request.Context(), ledgerID, currency)
	if err != nil {
		h.logger.Error("Failed to get active debts", "ledger_id", ledgerID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	debts := make([]DebtRelationResponse, len(relations))
	for i, rel := range relations {
		debts[i] = mapRelationToResponse(rel)
	}
	RespondOK(c, debts)
}

// GetMemberBalances retrieves the per-member net positions for a ledger
func (h *DebtHandler) GetMemberBalances(c *gin.Context) {
	ledgerID, currency, ok := h.parseScope(c)
	if !ok {
		return
	}

	summaries, err := h.debtService.GetMemberBalances(c.Request.Context(), ledgerID, currency)
	if err != nil {
		h.logger.Error("Failed to get member balances", "ledger_id", ledgerID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapSummariesToResponse(summaries))
}

func (h *DebtHandler) parseScope(c *gin.Context) (uuid.UUID, string, bool) {
	idParam := c.Param("id")
	ledgerID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid ledger ID", "ledger_id", idParam, "error", err)
		RespondBadRequest(c, "Invalid ledger ID")
		return uuid.Nil, "", false
	}

	currency := c.DefaultQuery("currency", "USD")
	if len(currency) != 3 {
		RespondBadRequest(c, "Invalid currency code")
		return uuid.Nil, "", false
	}
	return ledgerID, currency, true
}

// mapRelationToResponse maps a debt relation to a response DTO
func mapRelationToResponse(rel *debt.Relation) DebtRelationResponse {
	return DebtRelationResponse{
		ID:               rel.ID.String(),
		LedgerID:         rel.LedgerID.String(),
		CreditorID:       rel.CreditorID.String(),
		DebtorID:         rel.DebtorID.String(),
		Amount:           rel.Amount,
		Currency:         rel.Currency,
		Status:           string(rel.Status),
		LastCalculatedAt: rel.LastCalculatedAt.Format(time.RFC3339),
	}
}

func mapSummariesToResponse(summaries []settlement.MemberSummary) []MemberBalanceResponse {
	balances := make([]MemberBalanceResponse, len(summaries))
	for i, s := range summaries {
		balances[i] = MemberBalanceResponse{
			MemberID:    s.MemberID.String(),
			DisplayName: s.DisplayName,
			TotalOwedTo: s.TotalOwedTo,
			TotalOwes:   s.TotalOwes,
			NetBalance:  s.NetBalance,
		}
	}
	return balances
}
