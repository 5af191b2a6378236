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

func TestCorrelationIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("GeneratesCorrelationIDIfNotProvided", func(t *testing.T) {
		router := gin.New()
		router.Use(CorrelationID())

		var seenID string
		router.GET("/test", func(c *gin.Context) {
			seenID = GetCorrelationID(c)
			c.Status(http.StatusOK)
		})

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		headerID := rr.Header().Get(CorrelationIDHeader)
		require.NotEmpty(t, headerID)
		_, err := uuid.Parse(headerID)
		assert.NoError(t, err, "generated correlation ID should be a valid UUID")
		assert.Equal(t, headerID, seenID)
	})

	t.Run("UsesCorrelationIDIfProvided", func(t *testing.T) {
		router := gin.New()
		router.Use(CorrelationID())

		var seenID string
		router.GET("/test", func(c *gin.Context) {
			seenID = GetCorrelationID(c)
			c.Status(http.StatusOK)
		})

		providedID := uuid.New().String()
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(CorrelationIDHeader, providedID)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, providedID, rr.Header().Get(CorrelationIDHeader))
		assert.Equal(t, providedID, seenID)
	})

	t.Run("ReplacesInvalidProvidedID", func(t *testing.T) {
		router := gin.New()
		router.Use(CorrelationID())
		router.GET("/test", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(CorrelationIDHeader, "not-a-uuid")

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		headerID := rr.Header().Get(CorrelationIDHeader)
		assert.NotEqual(t, "not-a-uuid", headerID)
		_, err := uuid.Parse(headerID)
		assert.NoError(t, err)
	})
}

func TestGetCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("ReturnsStoredID", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		expected := uuid.New().String()
		c.Set(CorrelationIDKey, expected)

		assert.Equal(t, expected, GetCorrelationID(c))
	})

	t.Run("ReturnsEmptyWhenUnset", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		assert.Equal(t, "", GetCorrelationID(c))
	})

	t.Run("ReturnsEmptyForNonStringValue", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(CorrelationIDKey, 12345)

		assert.Equal(t, "", GetCorrelationID(c))
	})
}
