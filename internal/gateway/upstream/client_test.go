package upstream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardPassesStatusAndBodyThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions", r.URL.Path)
		assert.Equal(t, "user-1", r.Header.Get("X-User-ID"))

		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		assert.Contains(t, string(body), "senderUserId")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"statusCode":422,"message":"insufficient funds"}`))
	}))
	defer downstream.Close()

	r := gin.New()
	client := NewClient(downstream.URL)
	r.POST("/v1/transactions", func(c *gin.Context) {
		c.Set("userId", "user-1")
		client.Forward()(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions",
		strings.NewReader(`{"senderUserId":"user-1"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Downstream semantics must reach the caller untouched.
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient funds")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestForwardQueryStringPreserved(t *testing.T) {
	gin.SetMode(gin.TestMode)

	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "limit=10", r.URL.RawQuery)
		w.WriteHeader(http.StatusOK)
	}))
	defer downstream.Close()

	r := gin.New()
	r.GET("/v1/transactions/user/:userId", NewClient(downstream.URL).Forward())

	req := httptest.NewRequest(http.MethodGet, "/v1/transactions/user/user-1?limit=10", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestForwardUnreachableServiceReturnsBadGateway(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/v1/users/:userId", NewClient("http://127.0.0.1:1").Forward())

	req := httptest.NewRequest(http.MethodGet, "/v1/users/user-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Service unavailable")
}
