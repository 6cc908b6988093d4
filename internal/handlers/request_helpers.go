package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmersupply/internal/apperr"
	"farmersupply/internal/identity"
	"farmersupply/internal/middleware"
	"farmersupply/internal/store"
)

const storeTimeout = 5 * time.Second

// Validation errors name fields by their JSON key.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.WithField("route", route).Errorf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// handleWebhookPanic acknowledges the delivery even when processing panicked.
func handleWebhookPanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.WithField("route", route).Errorf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusOK, gin.H{"received": true})
	}
}

func ensureStoreAvailable(ctx context.Context, pinger store.Pinger) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return pinger.Ping(checkCtx)
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), storeTimeout)
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Warnf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.InvalidInput, apperr.InvalidState:
		return http.StatusBadRequest
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.ExternalUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondAppError maps a service error onto its HTTP status. Causes are logged,
// never returned.
func respondAppError(c *gin.Context, route string, err error) {
	kind := apperr.KindOf(err)
	status := statusForKind(kind)
	message := apperr.MessageOf(err)

	entry := log.WithFields(log.Fields{"route": route, "kind": kind.String(), "status": status})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Errorf("[%s] returning error %d: %s", route, status, message)
	} else {
		entry.Warnf("[%s] returning error %d: %s", route, status, message)
	}

	body := gin.H{"error": message}
	if details := apperr.DetailsOf(err); len(details) > 0 {
		body["details"] = details
	}
	c.AbortWithStatusJSON(status, body)
}

func respondValidationError(c *gin.Context, route string, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		log.Warnf("[%s] validation failed: %s", route, strings.Join(details, ", "))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	respondWithError(c, http.StatusBadRequest, route, "invalid request body")
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func requireCaller(c *gin.Context, route string) (identity.Caller, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return identity.Caller{}, false
	}
	return caller, true
}

func parseObjectID(c *gin.Context, route, raw, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, "invalid "+label)
		return primitive.NilObjectID, false
	}
	return id, true
}

// expectedVersion prefers the If-Match header over the body field. Neither
// present means the write is unconditional on the caller's side.
func expectedVersion(c *gin.Context, route string, fromBody *int64) (*int64, bool) {
	raw := strings.Trim(strings.TrimPrefix(strings.TrimSpace(c.GetHeader("If-Match")), "W/"), `"`)
	if raw == "" {
		return fromBody, true
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || version < 0 {
		respondWithError(c, http.StatusBadRequest, route, "invalid If-Match version")
		return nil, false
	}
	return &version, true
}

func noCache(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}
