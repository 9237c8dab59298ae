package hospital

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carewire/hospital-api/internal/middleware"
	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/service/hospital"
	"github.com/carewire/hospital-api/pkg/errors"
	"github.com/carewire/hospital-api/pkg/httputil"
)

type Handler struct {
	service *hospital.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *hospital.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

// RegisterRoutes mounts the hospital roster. Writes are reserved for the
// platform operator; single-hospital reads are open to that hospital's
// admin too, and the list to any authenticated caller picking a hospital
// at registration.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	superAdmin := h.auth.RequireRoles(string(model.RoleSuperAdmin))

	hospitals := rg.Group("/hospitals")
	{
		hospitals.POST("", superAdmin, h.Create)
		hospitals.GET("", h.List)
		hospitals.GET("/:id", h.auth.RequireRoles(string(model.RoleSuperAdmin), string(model.RoleHospitalAdmin)), h.Get)
		hospitals.PUT("/:id", superAdmin, h.Update)
		hospitals.DELETE("/:id", superAdmin, h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateHospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondInvalid(c, err)
		return
	}

	hospital, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, hospital)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid hospital id", err))
		return
	}

	hospital, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, hospital)
}

func (h *Handler) List(c *gin.Context) {
	hospitals, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, hospitals)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid hospital id", err))
		return
	}

	var req model.UpdateHospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondInvalid(c, err)
		return
	}

	hospital, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, hospital)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid hospital id", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}
