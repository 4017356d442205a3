package handler

import (
	"net/http"
	"strings"

	"techpay/internal/middleware"
	"techpay/internal/repository"
	"techpay/internal/service"
	"techpay/pkg/pagination"
	"techpay/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService service.OrderService
	auth         *middleware.Authenticator
}

func NewOrderHandler(orderService service.OrderService, auth *middleware.Authenticator) *OrderHandler {
	return &OrderHandler{orderService: orderService, auth: auth}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleConstructor)
	write := h.auth.RequireRole(middleware.RoleAdmin)

	orders := router.Group("/api/orders")
	{
		orders.GET("", read, h.ListOrders)
		orders.POST("", write, h.CreateOrder)
		orders.GET("/:id", read, h.GetOrder)
		orders.GET("/:id/summary", read, h.GetOrderSummary)
		orders.PATCH("/:id", write, h.UpdateOrder)
		orders.DELETE("/:id", write, h.DeleteOrder)
	}
}

// @Summary      Create an order
// @Tags         Orders
// @Accept       json
// @Produce      json
// @Param        request body service.OrderRequest true "Order"
// @Success      201 {object} response.Response{data=service.OrderResponse}
// @Failure      400 {object} response.Response
// @Security     BearerAuth
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(requestContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// @Summary      List orders with their financial summary
// @Tags         Orders
// @Produce      json
// @Param        constructor_id query int    false "Filter by constructor"
// @Param        search         query string false "Name contains"
// @Param        page  query int false "Page"
// @Param        limit query int false "Page size"
// @Success      200 {object} response.Response{data=[]service.OrderResponse,meta=pagination.Meta}
// @Security     BearerAuth
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	constructorID, ok := optionalUintQuery(c, "constructor_id")
	if !ok {
		return
	}
	p := pagination.Parse(c)
	filter := repository.OrderFilter{
		ConstructorID: constructorID,
		Search:        strings.TrimSpace(c.Query("search")),
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.List(http.StatusOK, orders, p.MetaFor(total)))
}

// @Summary      Get an order
// @Tags         Orders
// @Produce      json
// @Param        id path int true "Order ID"
// @Success      200 {object} response.Response{data=service.OrderResponse}
// @Failure      404 {object} response.Response
// @Security     BearerAuth
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// @Summary      Order financial summary
// @Description  Bonus, stage amounts, paid amounts, debt and fine netting of one order.
// @Tags         Orders
// @Produce      json
// @Param        id path int true "Order ID"
// @Success      200 {object} response.Response{data=service.OrderSummaryResponse}
// @Failure      404 {object} response.Response
// @Security     BearerAuth
// @Router       /api/orders/{id}/summary [get]
func (h *OrderHandler) GetOrderSummary(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	summary, err := h.orderService.GetOrderSummary(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// @Summary      Update an order
// @Description  Patches the given fields. An empty string clears a nullable field; constructor_id 0 unassigns; id re-keys the order.
// @Tags         Orders
// @Accept       json
// @Produce      json
// @Param        id path int true "Order ID"
// @Param        request body service.OrderRequest true "Changes"
// @Success      200 {object} response.Response{data=service.OrderResponse}
// @Failure      400 {object} response.Response
// @Failure      404 {object} response.Response
// @Security     BearerAuth
// @Router       /api/orders/{id} [patch]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orderService.UpdateOrder(requestContext(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// @Summary      Delete an order
// @Description  Rejected while payments are allocated to the order. Its deductions are deleted with it.
// @Tags         Orders
// @Param        id path int true "Order ID"
// @Success      200 {object} response.Response
// @Failure      400 {object} response.Response
// @Failure      404 {object} response.Response
// @Security     BearerAuth
// @Router       /api/orders/{id} [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.orderService.DeleteOrder(requestContext(c), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id}))
}
