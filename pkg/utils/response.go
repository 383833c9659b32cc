package utils

import (
	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func SuccessResponse(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, code int, message string, err error) {
	response := APIResponse{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(code, response)
}

// ErrorResponseWithCode adds a machine readable error class.
func ErrorResponseWithCode(c *gin.Context, code int, errorCode, message string, err error) {
	response := APIResponse{
		Success: false,
		Message: message,
		Code:    errorCode,
	}

	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(code, response)
}
