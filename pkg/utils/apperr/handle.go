package apperr

import (
	"context"

	"github.com/m-mizutani/ctxlog"
)

// Handle logs an error that ends the current operation
func Handle(ctx context.Context, err error) {
	logger := ctxlog.From(ctx)
	logger.Error("application error", "error", err)
}

// Warn logs an error of an optional step that does not fail the operation
func Warn(ctx context.Context, msg string, err error) {
	ctxlog.From(ctx).Warn(msg, "error", err)
}
