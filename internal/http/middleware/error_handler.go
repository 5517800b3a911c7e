package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/conectacordoba/marketplace-backend/internal/interface/http/response"
	"github.com/conectacordoba/marketplace-backend/internal/logger"
)

// ErrorHandler отвечает на ошибки, добавленные через c.Error, если обработчик сам ничего не записал.
// Внутренние причины уходят в лог, клиент видит только код и сообщение AppError.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			logger.Component("http").WithFields(logrus.Fields{
				"error":  e.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Warn("request error")
		}

		if c.Writer.Written() {
			return
		}
		response.Error(c, c.Errors.Last().Err)
	}
}
