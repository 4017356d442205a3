package handler

import (
	"net/http"

	"techpay/internal/middleware"
	"techpay/internal/service"
	"techpay/pkg/response"

	"github.com/gin-gonic/gin"
)

type ConstructorHandler struct {
	constructorService service.ConstructorService
	auth               *middleware.Authenticator
}

func NewConstructorHandler(constructorService service.ConstructorService, auth *middleware.Authenticator) *ConstructorHandler {
	return &ConstructorHandler{constructorService: constructorService, auth: auth}
}

func (h *ConstructorHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleConstructor)
	write := h.auth.RequireRole(middleware.RoleAdmin)

	constructors := router.Group("/api/constructors")
	{
		constructors.GET("", read, h.ListConstructors)
		constructors.POST("", write, h.CreateConstructor)
		constructors.GET("/:id", read, h.GetConstructor)
		constructors.PATCH("/:id", write, h.UpdateConstructor)
	}
}

// @Summary      List constructors
// @Tags         Constructors
// @Produce      json
// @Param        active query bool false "Only active constructors"
// @Success      200 {object} response.Response{data=[]service.ConstructorResponse}
// @Security     BearerAuth
// @Router       /api/constructors [get]
func (h *ConstructorHandler) ListConstructors(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	list, err := h.constructorService.ListConstructors(c.Request.Context(), activeOnly)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, list))
}

// @Summary      Create a constructor
// @Description  Defaults: sales_percent mode, 0% salary, 50/50 stage split, active.
// @Tags         Constructors
// @Accept       json
// @Produce      json
// @Param        request body service.ConstructorRequest true "Constructor"
// @Success      201 {object} response.Response{data=service.ConstructorResponse}
// @Failure      400 {object} response.Response
// @Security     BearerAuth
// @Router       /api/constructors [post]
func (h *ConstructorHandler) CreateConstructor(c *gin.Context) {
	var req service.ConstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	constructor, err := h.constructorService.CreateConstructor(requestContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, constructor))
}

// @Summary      Get a constructor
// @Tags         Constructors
// @Produce      json
// @Param        id path int true "Constructor ID"
// @Success      200 {object} response.Response{data=service.ConstructorResponse}
// @Failure      404 {object} response.Response
// @Security     BearerAuth
// @Router       /api/constructors/{id} [get]
func (h *ConstructorHandler) GetConstructor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	constructor, err := h.constructorService.GetConstructor(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, constructor))
}

// @Summary      Update a constructor
// @Tags         Constructors
// @Accept       json
// @Produce      json
// @Param        id path int true "Constructor ID"
// @Param        request body service.ConstructorRequest true "Changes"
// @Success      200 {object} response.Response{data=service.ConstructorResponse}
// @Failure      400 {object} response.Response
// @Failure      404 {object} response.Response
// @Security     BearerAuth
// @Router       /api/constructors/{id} [patch]
func (h *ConstructorHandler) UpdateConstructor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.ConstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	constructor, err := h.constructorService.UpdateConstructor(requestContext(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, constructor))
}
