// Package httpstatus maps tutoring errors onto HTTP status codes.
package httpstatus

import (
	"context"
	"errors"
	"net/http"

	"github.com/zhouzirui/z-tutor/backend/internal/repository/history"
	chatservice "github.com/zhouzirui/z-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/service/classifier"
	"github.com/zhouzirui/z-tutor/backend/internal/service/tutor"
)

// FromError 根据错误类型选择状态码，未知错误一律按 500 处理。
func FromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, chatservice.ErrSessionIDRequired),
		errors.Is(err, chatservice.ErrEmptyMessage),
		errors.Is(err, history.ErrSessionIDRequired):
		return http.StatusBadRequest
	case errors.Is(err, classifier.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, tutor.ErrModelFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
