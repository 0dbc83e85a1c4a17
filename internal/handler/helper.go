package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"buy_for_real_go/internal/model"
	"buy_for_real_go/internal/service"

	"github.com/gin-gonic/gin"
)

// mapServiceError 把 Service 层哨兵错误转换为 HTTP 状态码和对外消息。
// 统一映射的价值：
// 1. Handler 不必散落大量 if/else 判断。
// 2. 对外返回口径稳定，避免泄露内部实现细节。
func mapServiceError(err error) (httpStatus int, message string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid request parameters"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, service.ErrUserAlreadyExists):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrGroupNotFound):
		return http.StatusNotFound, "Group not found"
	case errors.Is(err, service.ErrGroupSlugConflict):
		return http.StatusConflict, "Group slug already exists"
	case errors.Is(err, service.ErrGroupCycle):
		return http.StatusConflict, "Group cannot be moved under its own descendant"
	case errors.Is(err, service.ErrMediaNotFound):
		return http.StatusNotFound, "Media not found"
	case errors.Is(err, service.ErrProductNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, service.ErrAdvertisementNotFound):
		return http.StatusNotFound, "Advertisement not found"
	case errors.Is(err, service.ErrFileTooLarge):
		// Service 层的错误文本带有实际大小和配置上限，原样透出
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, service.ErrExternalService):
		return http.StatusBadGateway, "Upstream service is unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// respondServiceError 是多数 Handler 失败路径的统一出口。
// 哨兵错误携带的补充信息（如具体大小限制）在 message 里透出。
func respondServiceError(c *gin.Context, err error) {
	status, message := mapServiceError(err)
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
	})
}

// parseUintParam 解析路径参数里的数字 id。
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": "Invalid " + name + " parameter",
		})
		return 0, false
	}
	return uint(v), true
}

// extractBearerToken 从 Authorization 请求头提取 Bearer Token。
// 期望格式：Authorization: Bearer <token>
func extractBearerToken(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	if strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("empty token")
	}
	return parts[1], nil
}

// getUserFromContext 从 Gin 上下文中读取 AuthMiddleware 注入的用户对象。
// 如果上下文异常，该函数会直接写错误响应并返回 false，调用方只需 `if !ok { return }`。
func getUserFromContext(c *gin.Context) (*model.User, bool) {
	userVal, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    http.StatusUnauthorized,
			"error":   "Unauthorized",
			"message": "User not found in context",
		})
		return nil, false
	}

	user, ok := userVal.(*model.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"error":   "Internal server error",
			"message": "Failed to get user profile",
		})
		return nil, false
	}
	return user, true
}
