package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapkart/storefront/internal/services"
	"github.com/snapkart/storefront/pkg/response"
)

// OrdersHandler exposes a customer's order history.
type OrdersHandler struct {
	orders *services.OrderService
}

func NewOrdersHandler(orders *services.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

// GET /api/orders
func (h *OrdersHandler) List(c *gin.Context) {
	orders, err := h.orders.ListForUser(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"orders": orders})
}

// GET /api/orders/:id
func (h *OrdersHandler) Get(c *gin.Context) {
	order, err := h.orders.GetForUser(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, serviceError(err))
		return
	}

	response.Success(c, http.StatusOK, order)
}
