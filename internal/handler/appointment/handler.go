package appointment

import (
	"github.com/gin-gonic/gin"

	"github.com/carewire/hospital-api/internal/middleware"
	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/service/appointment"
	"github.com/carewire/hospital-api/pkg/errors"
	"github.com/carewire/hospital-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *appointment.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	patient := h.auth.RequireRoles(string(model.RolePatient))

	appointments := rg.Group("/appointments")
	{
		appointments.POST("", patient, h.Book)
		appointments.GET("", patient, h.ListMine)
	}
}

// Book commits the booking locally and reserves the backing slot in the
// schedule service. A pending reservation comes back as 207 with a retry
// token; a refused one is a generic booking failure.
func (h *Handler) Book(c *gin.Context) {
	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondInvalid(c, err)
		return
	}

	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	result, err := h.service.Book(c.Request.Context(), claims.SubjectID, claims.HospitalID, &req, middleware.BearerFromContext(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if result.Partial() {
		httputil.RespondWithPartialSuccess(c, result.Appointment, result.RemoteErr, result.RetryToken)
		return
	}
	httputil.RespondWithCreated(c, result.Appointment)
}

func (h *Handler) ListMine(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized(nil))
		return
	}

	appointments, err := h.service.ListByPatient(c.Request.Context(), claims.SubjectID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}
