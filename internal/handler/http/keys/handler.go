package keys

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bharatconnect/internal/domain"
	"bharatconnect/internal/middleware"
	"bharatconnect/internal/service/keys"
	"bharatconnect/pkg/response"
)

// Handler handles public key directory and key vault HTTP requests
type Handler struct {
	keysService *keys.Service
}

// NewHandler creates a new keys handler
func NewHandler(keysService *keys.Service) *Handler {
	return &Handler{
		keysService: keysService,
	}
}

// PublishKey publishes the caller's public key
// PUT /v1/keys
func (h *Handler) PublishKey(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	var req domain.PublishKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "public_key is required")
		return
	}

	if err := h.keysService.PublishKey(c.Request.Context(), userID, req.PublicKey); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user_id": userID})
}

// GetPublicKey returns a user's public key
// GET /v1/keys/:user_id
func (h *Handler) GetPublicKey(c *gin.Context) {
	record, err := h.keysService.GetPublicKey(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, record)
}

// GetVault reports whether the caller has a key vault
// GET /v1/vault
func (h *Handler) GetVault(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	status, err := h.keysService.VaultStatus(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, status)
}

// CreateVault creates the caller's key vault
// POST /v1/vault
func (h *Handler) CreateVault(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	var req domain.CreateVaultRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, "invalid request body")
			return
		}
	}

	vault, err := h.keysService.CreateVault(c.Request.Context(), userID, req.ActiveKeyID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, vault)
}
