package envelope

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bharatconnect/internal/domain"
	"bharatconnect/internal/middleware"
	"bharatconnect/internal/service/envelope"
	"bharatconnect/pkg/constants"
	apperrors "bharatconnect/pkg/errors"
	"bharatconnect/pkg/pagination"
	"bharatconnect/pkg/response"
)

// Handler handles encrypted message envelope HTTP requests
type Handler struct {
	envelopeService *envelope.Service
}

// NewHandler creates a new envelope handler
func NewHandler(envelopeService *envelope.Service) *Handler {
	return &Handler{
		envelopeService: envelopeService,
	}
}

// StoreEnvelope stores an encrypted message from the caller
// POST /v1/conversations/:conversation_id/messages
func (h *Handler) StoreEnvelope(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxEnvelopeBytes)

	var req domain.StoreEnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, apperrors.MalformedPayloadError("payload is not a JSON envelope"))
		return
	}

	env, err := h.envelopeService.Store(c.Request.Context(), userID, c.Param("conversation_id"), &req.Payload)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, env)
}

// ListEnvelopes lists the caller's envelopes in a conversation, newest first
// GET /v1/conversations/:conversation_id/messages?limit=&cursor=
func (h *Handler) ListEnvelopes(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	params, err := pagination.ParseCursorParams(c.Query("limit"), c.Query("cursor"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	page, err := h.envelopeService.List(c.Request.Context(), userID, c.Param("conversation_id"), params)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, page)
}
