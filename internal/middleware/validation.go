package middleware

import (
	stderrors "errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/pkg/errors"
	"github.com/carewire/hospital-api/pkg/httputil"
)

// FieldError is one field-level binding failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var fieldMessages = map[string]string{
	"required": "field is required",
	"email":    "invalid email format",
	"uuid":     "must be a valid UUID",
	"datetime": "must be formatted as YYYY-MM-DD",
	"timeslot": "must be one of MORNING, AFTERNOON, EVENING",
	"min":      "value is too short",
	"oneof":    "value is not an allowed choice",
}

// RegisterValidators wires domain validators into gin's binding engine and
// makes validation errors report json field names instead of Go field names.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("timeslot", func(fl validator.FieldLevel) bool {
		return model.ValidTimeSlot(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// FieldErrors translates a binding failure into field-level messages.
// Failures that are not validator errors, e.g. malformed JSON, yield nil.
func FieldErrors(err error) []FieldError {
	var errs validator.ValidationErrors
	if !stderrors.As(err, &errs) {
		return nil
	}

	out := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		msg := fieldMessages[e.Tag()]
		if msg == "" {
			msg = e.Error()
		}
		out = append(out, FieldError{Field: e.Field(), Message: msg})
	}
	return out
}

// RespondInvalid reports a binding failure, attaching per-field details when
// the failure came from validation tags.
func RespondInvalid(c *gin.Context, err error) {
	if fields := FieldErrors(err); len(fields) > 0 {
		httputil.RespondWithErrorDetails(c, errors.Validation("invalid request body", err), fields)
		return
	}
	httputil.RespondWithError(c, errors.Validation("invalid request body", err))
}
