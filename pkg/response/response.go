package response

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/oauth-bridge/pkg/oautherr"
)

// JSON sends a success payload. Token and userinfo responses must not be
// cached by intermediaries (RFC 6749 §5.1), so no-store headers are always set.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// Error sends an RFC 6749 error body with the status carried by the error.
func Error(c *gin.Context, err error) {
	oErr := oautherr.From(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(oErr.Status, oErr)
}
