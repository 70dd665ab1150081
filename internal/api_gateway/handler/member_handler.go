package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/splitledger/internal/api_gateway/service"
	"github.com/splitledger/internal/domain/member"
)

// MemberHandler handles HTTP requests for member directory operations
type MemberHandler struct {
	memberService service.MemberService
	logger        *slog.Logger
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(logger *slog.Logger, memberService service.MemberService) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
		logger:        logger,
	}
}

// Create registers a new member
func (h *MemberHandler) Create(c *gin.Context) {
	var req CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	m, err := h.memberService.CreateMember(c.Request.Context(), req.DisplayName)
	if err != nil {
		h.logger.Error("Failed to create member", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapMemberToResponse(m))
}

// GetByID retrieves member details by ID, returns 404 if not found
func (h *MemberHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid member ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid member ID")
		return
	}

	m, err := h.memberService.GetMemberByID(c.Request.Context(), id)
	if err != nil {
		var notFound member.ErrMemberNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Member not found")
			return
		}
		h.logger.Error("Failed to get member", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapMemberToResponse(m))
}

// mapMemberToResponse maps a member to a response DTO
func mapMemberToResponse(m *member.Member) MemberResponse {
	return MemberResponse{
		ID:          m.ID.String(),
		DisplayName: m.DisplayName,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
}
