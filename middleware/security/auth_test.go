package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(opts *Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/cb", Middleware(opts), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func call(r *gin.Engine, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodPost, "/cb", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestCallbackSecret(t *testing.T) {
	r := newEngine(DefaultOptions("s3cret"))

	assert.Equal(t, http.StatusUnauthorized, call(r, nil))
	assert.Equal(t, http.StatusUnauthorized, call(r, map[string]string{DefaultHeader: "nope"}))
	assert.Equal(t, http.StatusNoContent, call(r, map[string]string{DefaultHeader: "s3cret"}))
	assert.Equal(t, http.StatusNoContent, call(r, map[string]string{"Authorization": "Bearer s3cret"}))
}

func TestCallbackSecretDisabled(t *testing.T) {
	r := newEngine(DefaultOptions(""))
	assert.Equal(t, http.StatusNoContent, call(r, nil))
}
