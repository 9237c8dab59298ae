package schedule

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carewire/hospital-api/internal/middleware"
	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/service/schedule"
	"github.com/carewire/hospital-api/pkg/errors"
	"github.com/carewire/hospital-api/pkg/httputil"
)

type Handler struct {
	service *schedule.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *schedule.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

// RegisterRoutes mounts the schedule surface. The reservations endpoint is
// the receiving side of the booking saga and is meant for service callers;
// it accepts any authenticated bearer because sagas forward the original
// caller's token.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	schedules := rg.Group("/schedules")
	{
		schedules.POST("", h.auth.RequireRoles(string(model.RoleHospitalAdmin)), h.AssignSchedule)
		schedules.GET("", h.auth.RequireRoles(string(model.RoleHospitalAdmin)), h.ListByHospital)
		schedules.GET("/mine", h.ListMine)
		schedules.GET("/users/:id", h.ListByUser)
		schedules.GET("/:id", h.GetAssignment)
		schedules.DELETE("/:id", h.auth.RequireRoles(string(model.RoleHospitalAdmin)), h.CancelAssignment)
	}

	rg.POST("/internal/reservations", h.ReserveSlot)
}

func (h *Handler) AssignSchedule(c *gin.Context) {
	var req model.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondInvalid(c, err)
		return
	}

	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	result, err := h.service.AssignSchedule(c.Request.Context(), claims.HospitalID, &req, middleware.BearerFromContext(c))
	if err != nil {
		respondConflictAware(c, err)
		return
	}

	if result.Partial() {
		httputil.RespondWithPartialSuccess(c, result.Assignment, result.RemoteErr, result.RetryToken)
		return
	}
	httputil.RespondWithCreated(c, result.Assignment)
}

func (h *Handler) GetAssignment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid assignment id", err))
		return
	}

	assignment, err := h.service.GetAssignment(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, assignment)
}

func (h *Handler) ListByHospital(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	assignments, err := h.service.ListByHospital(c.Request.Context(), claims.HospitalID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, assignments)
}

// ListMine returns the caller's own assignments, for caregivers checking
// their roster.
func (h *Handler) ListMine(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	assignments, err := h.service.ListByAssignee(c.Request.Context(), claims.SubjectID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, assignments)
}

// ListByUser returns one caregiver's assignments. Admins can read anyone;
// everyone else only their own.
func (h *Handler) ListByUser(c *gin.Context) {
	assigneeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid user id", err))
		return
	}

	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}
	if claims.SubjectID != assigneeID && claims.Role != string(model.RoleHospitalAdmin) {
		httputil.RespondWithError(c, errors.Forbidden("cannot read another user's schedule"))
		return
	}

	assignments, err := h.service.ListByAssignee(c.Request.Context(), assigneeID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, assignments)
}

func (h *Handler) CancelAssignment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid assignment id", err))
		return
	}

	if err := h.service.CancelAssignment(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"cancelled": true})
}

// ReserveSlot grabs the schedule slot backing an appointment. Idempotent on
// the appointment id, so saga replays return the existing reservation.
func (h *Handler) ReserveSlot(c *gin.Context) {
	var payload model.ReserveSlotPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		middleware.RespondInvalid(c, err)
		return
	}

	assignment, err := h.service.ReserveSlot(c.Request.Context(), &payload)
	if err != nil {
		respondConflictAware(c, err)
		return
	}
	httputil.RespondWithCreated(c, assignment)
}

// respondConflictAware attaches the machine-readable refusal, including
// alternative dates for leave conflicts, to the error body.
func respondConflictAware(c *gin.Context, err error) {
	var conflictErr *schedule.ConflictError
	if stderrors.As(err, &conflictErr) {
		details := gin.H{"reason": conflictErr.Reason}
		if len(conflictErr.Alternatives) > 0 {
			dates := make([]string, 0, len(conflictErr.Alternatives))
			for _, d := range conflictErr.Alternatives {
				dates = append(dates, d.Format(model.DateOnly))
			}
			details["available_dates"] = dates
		}
		httputil.RespondWithErrorDetails(c, err, details)
		return
	}
	httputil.RespondWithError(c, err)
}
