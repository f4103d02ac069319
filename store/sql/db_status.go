package sqlstore

import (
	"context"
	"net/http"
	"time"

	"github.com/uptrace/bun"
)

const (
	DBStatusAvailable   = "available"
	DBStatusUnavailable = "unavailable"
)

const defaultPingTimeout = 2 * time.Second

// DBHealth is the liveness report served by the health endpoint.
type DBHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HTTPStatus maps the report to 200 or 503.
func (h DBHealth) HTTPStatus() int {
	if h.Status == DBStatusAvailable {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// DBStatus pings the shared handle. A nil handle reports unavailable.
func DBStatus(ctx context.Context, db Pinger) DBHealth {
	if db == nil {
		return DBHealth{Status: DBStatusUnavailable, Error: "database handle is not configured"}
	}
	if b, ok := db.(*bun.DB); ok && b == nil {
		return DBHealth{Status: DBStatusUnavailable, Error: "database handle is not configured"}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultPingTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		return DBHealth{Status: DBStatusUnavailable, Error: err.Error()}
	}
	return DBHealth{Status: DBStatusAvailable}
}
