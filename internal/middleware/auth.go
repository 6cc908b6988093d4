package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmersupply/internal/identity"
)

const callerKey = "caller"

// AuthGuard validates the bearer token and stores the caller in the context.
// With allowedRoles set, any other role is rejected with 403.
func AuthGuard(secret string, allowedRoles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			log.Warn("[AUTH] missing token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		parts := strings.Split(raw, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			log.Warn("[AUTH] invalid token format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			log.WithError(err).Warn("[AUTH] token validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			log.Warn("[AUTH] token claims invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		caller, ok := callerFromClaims(claims)
		if !ok {
			log.Warn("[AUTH] token has no usable user id or role")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if len(allowedRoles) > 0 && !roleAllowed(caller.Role, allowedRoles) {
			log.WithFields(log.Fields{"user": caller.ID.Hex(), "role": caller.Role}).Warn("[AUTH] role not allowed")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

func AdminAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret, identity.RoleAdmin)
}

// CallerFrom returns the caller stored by AuthGuard.
func CallerFrom(c *gin.Context) (identity.Caller, bool) {
	value, ok := c.Get(callerKey)
	if !ok {
		return identity.Caller{}, false
	}
	caller, ok := value.(identity.Caller)
	return caller, ok
}

// callerFromClaims accepts the user id under "id", "userId" or "sub".
// A token without a role is treated as a plain user.
func callerFromClaims(claims jwt.MapClaims) (identity.Caller, bool) {
	var rawID string
	for _, key := range []string{"id", "userId", "sub"} {
		if v, ok := claims[key].(string); ok && strings.TrimSpace(v) != "" {
			rawID = strings.TrimSpace(v)
			break
		}
	}
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return identity.Caller{}, false
	}

	role := identity.RoleUser
	if rawRole, ok := claims["role"].(string); ok && rawRole != "" {
		parsed, valid := identity.ParseRole(strings.ToLower(rawRole))
		if !valid {
			return identity.Caller{}, false
		}
		role = parsed
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return identity.Caller{ID: id, Role: role, Email: email, Name: name}, true
}

func roleAllowed(role identity.Role, allowed []identity.Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
