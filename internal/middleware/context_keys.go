package middleware

import "github.com/gin-gonic/gin"

// actorKey stores the acting user's identifier in the request context.
// User management lives outside this service; callers identify themselves
// through the X-Actor-ID header.
const actorKey = contextKey("actorID")

const actorHeader = "X-Actor-ID"

// ActorMiddleware captures the calling actor's ID from the request header.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := c.GetHeader(actorHeader); actor != "" {
			c.Set(string(actorKey), actor)
		}
		c.Next()
	}
}

// GetActorFromContext retrieves the acting user ID from the Gin context.
func GetActorFromContext(c *gin.Context) (string, bool) {
	actorVal, exists := c.Get(string(actorKey))
	if !exists {
		return "", false
	}
	actor, ok := actorVal.(string)
	if !ok || actor == "" {
		return "", false
	}
	return actor, true
}
