package httpstatus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	chatservice "github.com/zhouzirui/z-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/service/classifier"
	"github.com/zhouzirui/z-tutor/backend/internal/service/tutor"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{chatservice.ErrEmptyMessage, http.StatusBadRequest},
		{fmt.Errorf("load: %w", chatservice.ErrSessionIDRequired), http.StatusBadRequest},
		{classifier.ErrUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: generate reply: %w", tutor.ErrModelFailed, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("%w: generate reply: boom", tutor.ErrModelFailed), http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FromError(tc.err), "err %v", tc.err)
	}
}
