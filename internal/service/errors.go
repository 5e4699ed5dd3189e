package service

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/store"
)

// toConnectError maps analysis and store failures onto connect codes.
func toConnectError(op string, err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return err
	case model.IsUpstream(err):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, store.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, fmt.Errorf("%s: %w", op, err))
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, fmt.Errorf("failed to %s: %w", op, err))
	}
}
