package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atelier/internal/auth"
	"atelier/internal/domain"
	"atelier/internal/service"
)

// @Summary Create order
// @Description Colors are resolved against the catalog and frozen on the order.
// @Tags orders
// @Accept json
// @Produce json
// @Param input body service.CreateOrderInput true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req service.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary Orders by customer email
// @Tags orders
// @Produce json
// @Param email path string true "Customer email"
// @Success 200 {array} service.OrderView
// @Failure 404 {object} map[string]string
// @Router /orders/email/{email} [get]
func (s *Server) listOrdersByEmail(c *gin.Context) {
	views, err := s.orders.ListByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		s.fail(c, err)
		return
	}
	// clients treat an empty history as 404
	if len(views) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no orders found for this email"})
		return
	}
	c.JSON(http.StatusOK, views)
}

// @Summary List all orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.OrderView
// @Failure 401 {object} map[string]string
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	views, err := s.orders.ListAll(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} service.OrderView
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	v, err := s.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary Update order
// @Description Progress and tailor assignments are merged key by key; an empty tailor name clears the assignment.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param input body service.OrderPatch true "Patch"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [patch]
func (s *Server) updateOrder(c *gin.Context) {
	var patch service.OrderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.ApplyUpdate(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type deleteOrderResp struct {
	Message      string        `json:"message"`
	DeletedOrder *domain.Order `json:"deletedOrder"`
}

// @Summary Delete order
// @Description Allowed to staff and to the customer whose token email matches the order email.
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} deleteOrderResp
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [delete]
func (s *Server) deleteOrder(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if p, _ := auth.FromContext(ctx); !p.IsStaff() {
		email, err := s.orders.OwnerEmail(ctx, id)
		if err != nil {
			s.fail(c, err)
			return
		}
		if !p.Owns(email) {
			c.JSON(http.StatusForbidden, gin.H{"error": "only staff or the customer who placed the order can delete it"})
			return
		}
	}
	o, err := s.orders.DeleteOrder(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, deleteOrderResp{Message: "Order deleted successfully", DeletedOrder: o})
}

// @Summary Notify customer about variant progress
// @Description Sends the in-progress email below 100% and the ready email at 100%. Stored progress is not changed.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body service.NotifyRequest true "Notification"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /orders/notify [post]
func (s *Server) notify(c *gin.Context) {
	var req service.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if _, err := s.notifications.Notify(c.Request.Context(), req); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification email sent successfully"})
}
