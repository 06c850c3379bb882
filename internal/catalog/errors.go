package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"syscall"

	apperrors "toppick-workers/internal/common/errors"
)

func readError(ctx context.Context, backend string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewCatalogQueryTimeoutError(backend)
	}
	if isConnectionError(err) {
		return apperrors.NewCatalogConnectionFailedError(backend, err)
	}
	return apperrors.NewCatalogQueryFailedError(backend, err)
}

func writeError(action string, err error) error {
	return apperrors.NewCatalogWriteFailedError(action, err)
}

// isConnectionError reports whether err means the backend could not be
// reached, as opposed to rejecting the query.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
