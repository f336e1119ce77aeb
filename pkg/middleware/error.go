package middleware

import (
	"errors"
	"net/http"

	"dailynutra-loyaltyplane/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error translates the last error recorded on the gin context into a JSON
// response. Handlers push domain errors with c.Error and return.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var be errutil.BaseError
		if errors.As(last.Err, &be) {
			c.JSON(be.Code.HTTPStatus(), be.JSON())
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    errutil.StatusInternal,
				"message": last.Err.Error(),
			},
		})
	}
}
