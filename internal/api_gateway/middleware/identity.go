package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ProfileIDHeader carries the authenticated marketplace profile making the
	// request. Authentication itself happens upstream; this service only needs
	// the resolved identity for ownership checks.
	ProfileIDHeader = "X-Profile-ID"

	// ProfileIDKey is the key used to store the caller profile in the context
	ProfileIDKey = "profile_id"
)

// CallerIdentity middleware extracts the caller profile ID from the request
// headers and rejects requests without a valid one.
func CallerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(ProfileIDHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "MISSING_PROFILE_ID",
					"message": "X-Profile-ID header is required",
				},
			})
			return
		}

		profileID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "INVALID_PROFILE_ID",
					"message": "X-Profile-ID header must be a valid UUID",
				},
			})
			return
		}

		c.Set(ProfileIDKey, profileID)
		c.Next()
	}
}

// GetProfileID retrieves the caller profile ID from the gin context.
// Returns uuid.Nil when the identity middleware has not run.
func GetProfileID(c *gin.Context) uuid.UUID {
	if id, exists := c.Get(ProfileIDKey); exists {
		if profileID, ok := id.(uuid.UUID); ok {
			return profileID
		}
	}
	return uuid.Nil
}
