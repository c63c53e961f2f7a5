package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-media-identifier/internal/config"
	apperrors "go-media-identifier/internal/errors"
	"go-media-identifier/internal/logger"
	"go-media-identifier/internal/observer"
	"go-media-identifier/internal/service"
	"go-media-identifier/pkg/models"
)

// IdentifyRequest is the JSON request body. Exactly one of URL or Query is
// expected; multipart uploads use the "image" form field instead.
type IdentifyRequest struct {
	URL   string `json:"url,omitempty"`
	Query string `json:"query,omitempty"`
}

// NewHandler configures the HTTP routes.
func NewHandler(identifier service.IdentifyService, stats *observer.StatsObserver, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck(stats))
	r.POST("/identify", identify(identifier, cfg))

	return r
}

func identify(identifier service.IdentifyService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method":       c.Request.Method,
			"path":         c.Request.URL.Path,
			"content_type": c.ContentType(),
			"ip":           c.ClientIP(),
		}).Info("Processing identification request")

		response, err := dispatch(ctx, c, identifier)
		if err != nil {
			statusCode := determineStatusCode(err)
			if errors.Is(err, context.DeadlineExceeded) {
				err = apperrors.NewEngineTimeoutError("request timed out", err)
				statusCode = apperrors.GetStatusCode(err)
			}
			respondError(c, statusCode, "identification failed", err)
			return
		}

		duration := time.Since(startTime)
		logger.WithFields(logrus.Fields{
			"request_id":         response.RequestID,
			"candidates":         len(response.Candidates),
			"matched":            response.Record != nil,
			"processing_time_ms": duration.Milliseconds(),
		}).Info("Identification request completed")

		c.JSON(http.StatusOK, response)
	}
}

// dispatch picks the pipeline entry point from the request shape: multipart
// uploads carry raw bytes, JSON bodies carry either an image URL or a free
// text query.
func dispatch(ctx context.Context, c *gin.Context, identifier service.IdentifyService) (*models.IdentifyResponse, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		raw, err := readUpload(c)
		if err != nil {
			return nil, err
		}
		return identifier.IdentifyImage(ctx, raw)
	}

	var req IdentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apperrors.NewValidationError("invalid request format", err)
	}

	switch {
	case req.URL != "" && req.Query != "":
		return nil, apperrors.NewValidationError("provide either url or query, not both", nil)
	case req.URL != "":
		return identifier.IdentifyImageURL(ctx, req.URL)
	case req.Query != "":
		return identifier.IdentifyText(ctx, req.Query)
	default:
		return nil, apperrors.NewValidationError("request must include url, query, or an image upload", nil)
	}
}

func readUpload(c *gin.Context) ([]byte, error) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		return nil, apperrors.NewValidationError("missing image form field", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.NewValidationError("failed to read uploaded image", err)
	}
	if len(raw) == 0 {
		return nil, apperrors.NewValidationError("uploaded image is empty", nil)
	}
	return raw, nil
}

func healthCheck(stats *observer.StatsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":  "available",
			"version": "1.0.0",
			"time":    time.Now().UTC().Format(time.RFC3339),
		}
		if stats != nil {
			body["stats"] = stats.Snapshot()
		}
		c.JSON(http.StatusOK, body)
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
