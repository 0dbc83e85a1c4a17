package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"buy_for_real_go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BodyLogWriter 用于记录请求和响应的body
type BodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现了 io.Writer 接口，将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w *BodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// isTextBody 判断请求体是否适合原样写进日志。
// 媒体上传走 multipart，请求体是大块二进制，抓取既浪费内存又污染日志。
func isTextBody(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json")
}

// RequestLogger 作为 gin.HandlerFunc，记录每次请求的概要和（JSON 请求的）body。
// 每个请求分配一个 request_id 并回写到响应头 X-Request-ID，方便前后端对账日志。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		// 读取并重新缓存请求体（只处理 JSON，multipart 上传跳过）
		var requestBody []byte
		if c.Request.Body != nil && isTextBody(c.GetHeader("Content-Type")) {
			requestBody, _ = io.ReadAll(c.Request.Body)
			// 将读取的请求体重新设置回 c.Request.Body，以便后续处理函数可以正常读取
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		// 使用自定义的 ResponseWriter 捕获响应
		blw := &BodyLogWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = blw

		// 继续处理请求
		c.Next()

		// 记录相关信息
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		path := c.Request.URL.Path

		responseBody := ""
		if isTextBody(blw.Header().Get("Content-Type")) {
			responseBody = blw.body.String()
		}

		log.Infow("HTTP request",
			"request_id", requestID,
			"latency", latency,
			"status", statusCode,
			"client_ip", clientIP,
			"method", method,
			"path", path,
			"request_body", string(requestBody),
			"response_body", responseBody,
		)
	}
}
