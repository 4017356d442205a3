package handler

import (
	"net/http"

	"techpay/internal/middleware"
	"techpay/internal/service"
	"techpay/pkg/pagination"
	"techpay/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	auth           *middleware.Authenticator
}

func NewPaymentHandler(paymentService service.PaymentService, auth *middleware.Authenticator) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, auth: auth}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleConstructor)
	write := h.auth.RequireRole(middleware.RoleAdmin)

	payments := router.Group("/api/payments")
	{
		payments.GET("", read, h.ListPayments)
		payments.POST("", write, h.CreatePayment)
		payments.POST("/redistribute", write, h.RedistributePayments)
		payments.GET("/:id/allocations", read, h.GetPaymentAllocations)
		payments.DELETE("/:id", write, h.DeletePayment)
	}
}

// @Summary      Register a payment
// @Description  Records money received and allocates it to outstanding order stages. With manual_order_id the whole amount goes to that order; otherwise it is spread over the constructor's orders by due date. Whatever does not fit stays unallocated.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        request body service.CreatePaymentRequest true "Payment"
// @Success      201 {object} response.Response{data=service.PaymentResultResponse}
// @Failure      400 {object} response.Response "Validation error"
// @Failure      404 {object} response.Response "Order or constructor not found"
// @Failure      409 {object} response.Response "Concurrent allocation conflict, retry"
// @Security     BearerAuth
// @Router       /api/payments [post]
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.paymentService.CreatePayment(requestContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// @Summary      List payments
// @Tags         Payments
// @Produce      json
// @Param        constructor_id query int false "Only payments scoped to this constructor"
// @Param        page  query int false "Page"
// @Param        limit query int false "Page size"
// @Success      200 {object} response.Response{data=[]service.PaymentResponse,meta=pagination.Meta}
// @Security     BearerAuth
// @Router       /api/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	constructorID, ok := optionalUintQuery(c, "constructor_id")
	if !ok {
		return
	}
	p := pagination.Parse(c)

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), constructorID, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.List(http.StatusOK, payments, p.MetaFor(total)))
}

// @Summary      Payment allocations
// @Tags         Payments
// @Produce      json
// @Param        id path int true "Payment ID"
// @Success      200 {object} response.Response{data=[]service.AllocationResponse}
// @Failure      404 {object} response.Response
// @Security     BearerAuth
// @Router       /api/payments/{id}/allocations [get]
func (h *PaymentHandler) GetPaymentAllocations(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	allocations, err := h.paymentService.GetPaymentAllocations(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, allocations))
}

// @Summary      Delete a payment
// @Description  Reverses the payment. Paid amounts of the affected orders are recomputed from their remaining allocations.
// @Tags         Payments
// @Param        id path int true "Payment ID"
// @Success      200 {object} response.Response
// @Failure      404 {object} response.Response
// @Security     BearerAuth
// @Router       /api/payments/{id} [delete]
func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.paymentService.DeletePayment(requestContext(c), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id}))
}

// @Summary      Redistribute unallocated money
// @Description  Applies the unallocated remainder of every payment, oldest first, within the payment's own scope.
// @Tags         Payments
// @Produce      json
// @Success      200 {object} response.Response{data=service.RedistributeResponse}
// @Security     BearerAuth
// @Router       /api/payments/redistribute [post]
func (h *PaymentHandler) RedistributePayments(c *gin.Context) {
	result, err := h.paymentService.RedistributePayments(requestContext(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
