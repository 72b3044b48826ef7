package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jayymeson/loomi-test/internal/apperr"
	"github.com/jayymeson/loomi-test/internal/gateway/cache"
)

// CustomerHandler serves low-latency customer lookups from the event-fed
// projection. There is no fallback query: a customer the projection has not
// seen yet is reported as not yet available.
type CustomerHandler struct {
	cache *cache.CustomerCache
}

func NewCustomerHandler(c *cache.CustomerCache) *CustomerHandler {
	return &CustomerHandler{cache: c}
}

func (h *CustomerHandler) Register(r gin.IRouter) {
	r.GET("/v1/customers/:userId", h.GetCustomer)
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	view, ok := h.cache.Get(c.Param("userId"))
	if !ok {
		apperr.Respond(c, apperr.NotFound("customer not yet available"))
		return
	}
	c.JSON(http.StatusOK, view)
}
