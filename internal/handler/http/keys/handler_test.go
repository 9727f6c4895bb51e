package keys

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bharatconnect/internal/crypto"
	"bharatconnect/internal/repository/memory"
	"bharatconnect/internal/service/keys"
	"bharatconnect/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser stands in for AuthMiddleware
func asUser(c *gin.Context) {
	if uid := c.GetHeader("X-Test-User"); uid != "" {
		c.Set("user_id", uid)
	}
	c.Next()
}

func newRouter() *gin.Engine {
	svc := keys.NewService(memory.NewDirectory(), memory.NewVaultStore(), crypto.NewStdProvider())
	h := NewHandler(svc)

	r := gin.New()
	v1 := r.Group("/v1", asUser)
	v1.PUT("/keys", h.PublishKey)
	v1.GET("/keys/:user_id", h.GetPublicKey)
	v1.GET("/vault", h.GetVault)
	v1.POST("/vault", h.CreateVault)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, user string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func publicKey(t *testing.T) string {
	t.Helper()
	p := crypto.NewStdProvider()
	priv, err := p.GenerateRSAKeyPair()
	require.NoError(t, err)
	pk, err := p.ExportPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	return pk
}

func TestKeysFlow(t *testing.T) {
	r := newRouter()
	pk := publicKey(t)

	w, resp := do(t, r, http.MethodGet, "/v1/keys/alice", "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "KEY_NOT_FOUND", resp.Error.Code)

	w, _ = do(t, r, http.MethodPut, "/v1/keys", "alice", map[string]string{"public_key": pk})
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, r, http.MethodGet, "/v1/keys/alice", "bob", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, pk, data["public_key"])
}

func TestPublishKey_Errors(t *testing.T) {
	r := newRouter()

	w, resp := do(t, r, http.MethodPut, "/v1/keys", "alice", map[string]string{"public_key": "bm90LWEta2V5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_KEY_MATERIAL", resp.Error.Code)

	w, resp = do(t, r, http.MethodPut, "/v1/keys", "alice", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)

	w, _ = do(t, r, http.MethodPut, "/v1/keys", "", map[string]string{"public_key": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVaultFlow(t *testing.T) {
	r := newRouter()

	w, resp := do(t, r, http.MethodGet, "/v1/vault", "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp.Data.(map[string]interface{})["exists"])

	w, resp = do(t, r, http.MethodPost, "/v1/vault", "alice", map[string]string{"active_key_id": "k1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", resp.Error.Code)

	do(t, r, http.MethodPut, "/v1/keys", "alice", map[string]string{"public_key": publicKey(t)})

	w, _ = do(t, r, http.MethodPost, "/v1/vault", "alice", map[string]string{"active_key_id": "k1"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, resp = do(t, r, http.MethodGet, "/v1/vault", "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp.Data.(map[string]interface{})["exists"])

	w, resp = do(t, r, http.MethodPost, "/v1/vault", "alice", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "VAULT_EXISTS", resp.Error.Code)
}
