package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wardenfs/warden/internal/shared/status"
)

// statusClientClosedRequest is nginx's non-standard code for requests
// cancelled by the caller.
const statusClientClosedRequest = 499

// httpStatus maps the result taxonomy to HTTP status codes.
func httpStatus(code status.Code) int {
	switch code {
	case status.CodeInvalidPath:
		return http.StatusBadRequest
	case status.CodeForbidden:
		return http.StatusForbidden
	case status.CodeNotFound:
		return http.StatusNotFound
	case status.CodeConflict:
		return http.StatusConflict
	case status.CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case status.CodeCancelled:
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes a classified error response.
func fail(c *gin.Context, err error) {
	code := status.Of(err)
	c.JSON(httpStatus(code), gin.H{
		"code":  string(code),
		"error": err.Error(),
	})
}

// badRequest writes a request-binding failure.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":  "invalid_request",
		"error": err.Error(),
	})
}
