package caregiver

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carewire/hospital-api/internal/middleware"
	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/service/caregiver"
	"github.com/carewire/hospital-api/pkg/errors"
	"github.com/carewire/hospital-api/pkg/httputil"
)

type Handler struct {
	service *caregiver.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *caregiver.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := h.auth.RequireRoles(string(model.RoleHospitalAdmin))

	caregivers := rg.Group("/caregivers")
	{
		caregivers.POST("", admin, h.Register)
		caregivers.GET("", h.ListByHospital)
		caregivers.GET("/available", h.ListAvailable)
		caregivers.GET("/:id", h.Get)
		caregivers.PATCH("/:id/availability", h.SetAvailability)
		caregivers.POST("/:id/leaves", h.AddLeave)
		caregivers.DELETE("/:id/leaves/:date", h.RemoveLeave)

		// Receiving side of the assignment notification saga.
		caregivers.PATCH("/:id/schedule", h.AddScheduleRef)
	}
}

// Register creates the caregiver profile and pushes the matching credential
// to the auth boundary. A pending credential leg comes back as 207.
func (h *Handler) Register(c *gin.Context) {
	var req model.CreateCaregiverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondInvalid(c, err)
		return
	}

	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	result, err := h.service.Register(c.Request.Context(), claims.HospitalID, &req, middleware.BearerFromContext(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if result.Partial() {
		httputil.RespondWithPartialSuccess(c, result.Profile, result.RemoteErr, result.RetryToken)
		return
	}
	httputil.RespondWithCreated(c, result.Profile)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid caregiver id", err))
		return
	}

	profile, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, profile)
}

func (h *Handler) ListByHospital(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	profiles, err := h.service.ListByHospital(c.Request.Context(), claims.HospitalID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, profiles)
}

// ListAvailable returns caregivers available on the given date: flagged
// available and not on leave.
func (h *Handler) ListAvailable(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	date, err := time.Parse(model.DateOnly, c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid date, expected YYYY-MM-DD", err))
		return
	}

	profiles, err := h.service.ListAvailableForDate(c.Request.Context(), claims.HospitalID, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, profiles)
}

// SetAvailability toggles the availability flag. Caregivers manage their own
// flag; admins can manage anyone's.
func (h *Handler) SetAvailability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid caregiver id", err))
		return
	}
	if err := h.requireSelfOrAdmin(c, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondInvalid(c, err)
		return
	}

	if err := h.service.SetAvailability(c.Request.Context(), id, *req.Available); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"available": *req.Available})
}

func (h *Handler) AddLeave(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid caregiver id", err))
		return
	}
	if err := h.requireSelfOrAdmin(c, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondInvalid(c, err)
		return
	}
	date, err := time.Parse(model.DateOnly, req.Date)
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid date, expected YYYY-MM-DD", err))
		return
	}

	if err := h.service.AddLeaveDate(c.Request.Context(), id, date); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, gin.H{"date": req.Date})
}

func (h *Handler) RemoveLeave(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid caregiver id", err))
		return
	}
	if err := h.requireSelfOrAdmin(c, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	date, err := time.Parse(model.DateOnly, c.Param("date"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid date, expected YYYY-MM-DD", err))
		return
	}

	if err := h.service.RemoveLeaveDate(c.Request.Context(), id, date); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"removed": true})
}

// AddScheduleRef records an assignment notification from the schedule
// service. Replays with the same schedule id are no-ops.
func (h *Handler) AddScheduleRef(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid caregiver id", err))
		return
	}

	var req model.ScheduleRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondInvalid(c, err)
		return
	}
	scheduleID, err := uuid.Parse(req.ScheduleID)
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid schedule id", err))
		return
	}

	if err := h.service.AddScheduleRef(c.Request.Context(), id, scheduleID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"schedule_id": req.ScheduleID})
}

func (h *Handler) requireSelfOrAdmin(c *gin.Context, id uuid.UUID) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return errors.Unauthorized(nil)
	}
	if claims.SubjectID == id || claims.Role == string(model.RoleHospitalAdmin) {
		return nil
	}
	return errors.Forbidden("not allowed to manage this caregiver")
}
