package store

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// Every failing store operation wraps one of these two sentinels. Callers
// log-and-continue on ErrTransient (the next tick or next chunk is the
// retry) and log-and-drop the record on ErrFatal. There is no in-call
// retry.
var (
	ErrTransient = errors.New("transient store failure")
	ErrFatal     = errors.New("fatal store failure")

	// ErrDisabled is reported by every operation on a store without a
	// configured database. It classifies as transient.
	ErrDisabled = errors.New("store disabled")
)

// Operation names used in wrapped errors and as the op label on the
// store-error metric.
const (
	opPing            = "ping"
	opSchema          = "ensure schema"
	opInsertVoice     = "insert voice_emotion"
	opInsertFace      = "insert face_emotion"
	opInsertVitals    = "insert bvs_emotion"
	opQuerySignals    = "query voice_emotion"
	opLastConsumption = "query emotional_log"
)

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, classify(err), err)
}

// classify maps an error onto one of the two failure sentinels.
// Connection-level and resource problems are transient; data, constraint,
// and schema problems are fatal. Unknown errors default to transient so
// the caller keeps retrying on later work.
func classify(err error) error {
	if errors.Is(err, ErrDisabled) {
		return ErrTransient
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTransient
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "08", "40", "53", "55", "57", "58":
			// connection, serialization, resources, lock state, operator
			// intervention, system error
			return ErrTransient
		case "0A", "22", "23", "26", "42":
			// unsupported feature, bad data, constraint violation,
			// invalid statement, schema mismatch
			return ErrFatal
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrTransient
	}

	return ErrTransient
}

// Class returns the classification of a store error as a metric label:
// "transient", "fatal", or "" for nil and foreign errors.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFatal):
		return "fatal"
	case errors.Is(err, ErrTransient):
		return "transient"
	}
	return ""
}
