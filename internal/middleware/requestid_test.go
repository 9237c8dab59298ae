package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestIDRouter() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var seen string
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) {
		seen = RequestIDFromContext(c)
		c.Status(http.StatusOK)
	})
	return engine, &seen
}

func TestRequestIDEchoesCallerSuppliedID(t *testing.T) {
	engine, seen := requestIDRouter()

	rid := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, rid)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, rid, w.Header().Get(HeaderXRequestID))
	assert.Equal(t, rid, *seen)
}

func TestRequestIDMintsIDWhenMissingOrMalformed(t *testing.T) {
	for _, header := range []string{"", "not-a-uuid"} {
		engine, seen := requestIDRouter()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(HeaderXRequestID, header)
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		rid := w.Header().Get(HeaderXRequestID)
		_, err := uuid.Parse(rid)
		require.NoError(t, err, "the response always carries a well-formed id")
		assert.NotEqual(t, header, rid)
		assert.Equal(t, rid, *seen)
	}
}
