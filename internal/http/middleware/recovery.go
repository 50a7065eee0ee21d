// README: Recovery middleware; a panicking handler answers 500 instead of dropping the connection.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"centraltaxi/internal/logger"
)

func Recovery(log logger.ILogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panic", logger.String("path", c.Request.URL.Path), logger.Any("panic", r))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}
