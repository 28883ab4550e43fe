package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status string      `json:"status"`
	Msg    string      `json:"msg"`
	Data   interface{} `json:"data,omitempty"`
}

func Respond(c *gin.Context, httpStatus int, status string, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Status: status,
		Msg:    message,
		Data:   data,
	})
}

// RespondSuccess sends a success response with data.
func RespondSuccess(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, "success", "", data)
}

// RespondError sends an error response with message.
func RespondError(c *gin.Context, httpStatus int, message string) {
	Respond(c, httpStatus, "error", message, nil)
}

// RespondErrorAbort sends an error response and stops the handler chain.
// htmx requests get a toast instead of a JSON body.
func RespondErrorAbort(c *gin.Context, httpStatus int, message string) {
	if IsHTMX(c) {
		Toast(c, ToastError, message)
		c.Header(HeaderReswap, "none")
		c.AbortWithStatus(httpStatus)
		return
	}
	Respond(c, httpStatus, "error", message, nil)
	c.Abort()
}
