package database

import (
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"github.com/lib/pq"

	"github.com/venuewatch/venuewatch/internal/ingestion"
)

// Transient PostgreSQL error classes: connection exception, transaction
// rollback, insufficient resources and operator intervention.
var transientClasses = map[pq.ErrorClass]bool{
	"08": true,
	"40": true,
	"53": true,
	"57": true,
}

// classifyWriteError wraps connection-class failures as retryable. Constraint
// and data errors are returned unchanged since retrying cannot fix them.
func classifyWriteError(err error) error {
	if isTransient(err) {
		return ingestion.NewRetryableError(err)
	}
	return err
}

func isTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientClasses[pqErr.Code.Class()]
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
