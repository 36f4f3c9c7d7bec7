// Package routes wires HTTP endpoints to the service layer. Each service
// binary calls exactly one Setup function; handlers close over their
// dependencies instead of pulling them from a container.
package routes

import (
	"context"

	"github.com/gin-gonic/gin"
)

// detachedContext keeps request-scoped values (trace context) but drops the
// cancellation, for background work that must outlive the request.
func detachedContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}
