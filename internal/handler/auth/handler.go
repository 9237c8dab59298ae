package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carewire/hospital-api/internal/middleware"
	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/service/auth"
	"github.com/carewire/hospital-api/pkg/errors"
	"github.com/carewire/hospital-api/pkg/httputil"
)

type Handler struct {
	service *auth.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *auth.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

// RegisterRoutes mounts the public auth surface.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}
}

// RegisterProtectedRoutes mounts the routes that need an authenticated
// caller: the whoami endpoint, the service-facing credential endpoint the
// caregiver registration saga targets, and the admin roster reserved for
// the platform operator.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/me", h.Me)
	rg.POST("/internal/credentials", h.RegisterCredential)

	superAdmin := h.auth.RequireRoles(string(model.RoleSuperAdmin))
	admins := rg.Group("/admins", superAdmin)
	{
		admins.POST("", h.CreateAdmin)
		admins.GET("", h.ListAdmins)
		admins.DELETE("/:id", h.DeleteAdmin)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondInvalid(c, err)
		return
	}

	token, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, token)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondInvalid(c, err)
		return
	}

	token, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, token)
}

func (h *Handler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	record, err := h.service.Me(c.Request.Context(), claims.SubjectID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, record)
}

// CreateAdmin provisions a hospital admin credential. The password hash
// never leaves the service; the record marshals without it.
func (h *Handler) CreateAdmin(c *gin.Context) {
	var req model.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondInvalid(c, err)
		return
	}

	record, err := h.service.CreateAdmin(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, record)
}

func (h *Handler) ListAdmins(c *gin.Context) {
	records, err := h.service.ListAdmins(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, records)
}

func (h *Handler) DeleteAdmin(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid admin id", err))
		return
	}

	if err := h.service.DeleteAdmin(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}

// RegisterCredential is the service-facing registration leg: the payload
// carries a pre-hashed password and the write is idempotent on email, so
// saga replays are safe.
func (h *Handler) RegisterCredential(c *gin.Context) {
	var payload model.RegisterCredentialPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		middleware.RespondInvalid(c, err)
		return
	}

	if err := h.service.RegisterCredential(c.Request.Context(), &payload); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, gin.H{"registered": true})
}
