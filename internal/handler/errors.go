package handler

import (
	"errors"
	"strconv"

	"github.com/cardledger/internal/middleware"
	"github.com/cardledger/internal/repository"
	"github.com/cardledger/internal/service"
	"github.com/cardledger/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest     = "요청 형식이 올바르지 않습니다."
	msgInvalidID          = "잘못된 ID입니다."
	msgInvalidCredentials = "아이디 또는 비밀번호가 올바르지 않습니다."
	msgUsernameTaken      = "이미 사용 중인 아이디입니다."
	msgCategoryExists     = "이미 존재하는 항목입니다."
	msgUsageNotFound      = "사용 내역을 찾을 수 없습니다."
	msgCategoryNotFound   = "항목을 찾을 수 없습니다."
	msgUserNotFound       = "사용자를 찾을 수 없습니다."
	msgInternal           = "서버 오류가 발생했습니다."
)

// respondError maps a service error onto the HTTP error contract
func respondError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		response.BadRequest(c, ve.Message)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, msgInvalidCredentials)
	case errors.Is(err, service.ErrSessionExpired):
		response.Unauthorized(c, middleware.MsgSessionExpired)
	case errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(c, middleware.MsgUnauthorized)
	case errors.Is(err, service.ErrUsernameTaken):
		response.Conflict(c, msgUsernameTaken)
	case errors.Is(err, service.ErrCategoryExists):
		response.Conflict(c, msgCategoryExists)
	case errors.Is(err, repository.ErrUsageNotFound):
		response.NotFound(c, msgUsageNotFound)
	case errors.Is(err, repository.ErrCategoryNotFound):
		response.NotFound(c, msgCategoryNotFound)
	case errors.Is(err, repository.ErrUserNotFound):
		response.NotFound(c, msgUserNotFound)
	default:
		middleware.LogError("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		response.InternalError(c, msgInternal)
	}
}

// parseID reads the :id path parameter
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, msgInvalidID)
		return 0, false
	}
	return uint(id), true
}
