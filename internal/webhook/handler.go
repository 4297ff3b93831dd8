package webhook

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/validator"
)

// Handler handles webhook ingestion and API key management.
type Handler struct {
	svc  *Service
	repo *Repository
	val  *validator.Validator
}

// NewHandler creates a new webhook handler.
func NewHandler(svc *Service, repo *Repository, val *validator.Validator) *Handler {
	return &Handler{svc: svc, repo: repo, val: val}
}

// HandleContactCapture ingests one contact submission.
// POST /api/v1/webhook/contacts (X-Webhook-API-Key auth)
func (h *Handler) HandleContactCapture(c *gin.Context) {
	var sub ContactSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(sub); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	ownerID, ok := c.Get(ctxOwnerIDKey)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "missing API key context", nil)
		return
	}

	result, err := h.svc.Ingest(c.Request.Context(), ownerID.(uuid.UUID), sub)
	if httpkit.HandleError(c, err) {
		return
	}
	if result.Duplicate {
		httpkit.OK(c, result)
		return
	}
	httpkit.Created(c, result)
}

// CreateAPIKeyRequest is the request body for creating a new API key.
type CreateAPIKeyRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// APIKeyResponse is returned when listing or creating API keys. Key is
// only populated on creation.
type APIKeyResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	KeyPrefix string     `json:"keyPrefix"`
	Key       string     `json:"key,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// HandleCreateAPIKey mints a new capture key. The plaintext is only in
// this response; the store keeps a hash.
// POST /api/v1/webhook/keys
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	var req CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c, identity)
	if !ok {
		return
	}

	plaintext, err := generateKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to generate key", nil)
		return
	}

	key, err := h.repo.Create(c.Request.Context(), ownerID, req.Name, HashKey(plaintext), plaintext[:8])
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, APIKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		KeyPrefix: key.KeyPrefix,
		Key:       plaintext,
		CreatedAt: key.CreatedAt,
	})
}

// HandleListAPIKeys lists the tenant's capture keys.
// GET /api/v1/webhook/keys
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c, identity)
	if !ok {
		return
	}

	keys, err := h.repo.List(c.Request.Context(), ownerID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		out = append(out, APIKeyResponse{
			ID:        key.ID,
			Name:      key.Name,
			KeyPrefix: key.KeyPrefix,
			CreatedAt: key.CreatedAt,
			RevokedAt: key.RevokedAt,
		})
	}
	httpkit.OK(c, gin.H{"keys": out})
}

// HandleRevokeAPIKey disables a capture key.
// DELETE /api/v1/webhook/keys/:keyId
func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid key ID", nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c, identity)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.repo.Revoke(c.Request.Context(), ownerID, keyID)) {
		return
	}
	httpkit.NoContent(c)
}

func generateKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "whk_" + hex.EncodeToString(buf), nil
}
