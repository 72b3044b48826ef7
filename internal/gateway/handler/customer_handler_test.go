package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayymeson/loomi-test/internal/apperr"
	"github.com/jayymeson/loomi-test/internal/gateway/cache"
	"github.com/jayymeson/loomi-test/internal/models"
)

func setupRouter(projection *cache.CustomerCache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewCustomerHandler(projection).Register(r)
	return r
}

func TestGetCustomerHit(t *testing.T) {
	projection := cache.NewCustomerCache(10, 0)
	projection.Set(models.CustomerView{
		ID:      "user-1",
		Name:    "Ana",
		Email:   "ana@mail.com",
		Balance: decimal.NewFromInt(500),
	})
	router := setupRouter(projection)

	req := httptest.NewRequest(http.MethodGet, "/v1/customers/user-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var got models.CustomerView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Ana", got.Name)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(500)))
}

func TestGetCustomerMiss(t *testing.T) {
	router := setupRouter(cache.NewCustomerCache(10, 0))

	req := httptest.NewRequest(http.MethodGet, "/v1/customers/ghost", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body apperr.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "customer not yet available", body.Message)
}
