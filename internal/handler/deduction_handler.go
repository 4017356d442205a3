package handler

import (
	"net/http"

	"techpay/internal/middleware"
	"techpay/internal/service"
	"techpay/pkg/response"

	"github.com/gin-gonic/gin"
)

type DeductionHandler struct {
	deductionService service.DeductionService
	auth             *middleware.Authenticator
}

func NewDeductionHandler(deductionService service.DeductionService, auth *middleware.Authenticator) *DeductionHandler {
	return &DeductionHandler{deductionService: deductionService, auth: auth}
}

func (h *DeductionHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleConstructor)
	write := h.auth.RequireRole(middleware.RoleAdmin)

	deductions := router.Group("/api/deductions")
	{
		deductions.GET("", read, h.ListDeductions)
		deductions.POST("", write, h.CreateDeduction)
		deductions.PATCH("/:id", write, h.UpdateDeduction)
		deductions.DELETE("/:id", write, h.DeleteDeduction)
	}
}

// @Summary      List deductions
// @Tags         Deductions
// @Produce      json
// @Param        order_id query int false "Only deductions of this order"
// @Success      200 {object} response.Response{data=[]service.DeductionResponse}
// @Security     BearerAuth
// @Router       /api/deductions [get]
func (h *DeductionHandler) ListDeductions(c *gin.Context) {
	orderID, ok := optionalUintQuery(c, "order_id")
	if !ok {
		return
	}

	list, err := h.deductionService.ListDeductions(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, list))
}

// @Summary      Add a deduction
// @Description  Records a fine against an order. While unpaid it offsets the order's debt.
// @Tags         Deductions
// @Accept       json
// @Produce      json
// @Param        request body service.CreateDeductionRequest true "Deduction"
// @Success      201 {object} response.Response{data=service.DeductionResponse}
// @Failure      400 {object} response.Response
// @Failure      404 {object} response.Response
// @Security     BearerAuth
// @Router       /api/deductions [post]
func (h *DeductionHandler) CreateDeduction(c *gin.Context) {
	var req service.CreateDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	d, err := h.deductionService.CreateDeduction(requestContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, d))
}

// @Summary      Update a deduction
// @Tags         Deductions
// @Accept       json
// @Produce      json
// @Param        id path int true "Deduction ID"
// @Param        request body service.UpdateDeductionRequest true "Changes"
// @Success      200 {object} response.Response{data=service.DeductionResponse}
// @Failure      400 {object} response.Response
// @Failure      404 {object} response.Response
// @Security     BearerAuth
// @Router       /api/deductions/{id} [patch]
func (h *DeductionHandler) UpdateDeduction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	d, err := h.deductionService.UpdateDeduction(requestContext(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, d))
}

// @Summary      Delete a deduction
// @Tags         Deductions
// @Param        id path int true "Deduction ID"
// @Success      200 {object} response.Response
// @Failure      404 {object} response.Response
// @Security     BearerAuth
// @Router       /api/deductions/{id} [delete]
func (h *DeductionHandler) DeleteDeduction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.deductionService.DeleteDeduction(requestContext(c), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id}))
}
