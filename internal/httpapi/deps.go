package httpapi

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/Kelokecl/keloke-trends-worker/internal/events"
	"github.com/Kelokecl/keloke-trends-worker/internal/worker"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	CfgVal *atomic.Value // stores config.Config

	// Batch entrypoint (injected for testability)
	RunBatch func(ctx context.Context, params worker.RunParams) (worker.Summary, error)
}
