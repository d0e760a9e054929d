package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type SuccessEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type ErrorEnvelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
	Path       string `json:"path"`
	Timestamp  string `json:"timestamp"`
}

func RespondSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessEnvelope{Success: true, Message: message, Data: data})
}

// AbortWithError writes the error envelope and stops the handler chain.
func AbortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Success:    false,
		Message:    message,
		Error:      http.StatusText(status),
		StatusCode: status,
		Path:       c.Request.URL.RequestURI(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	})
}
