package interfaces

import (
	"context"

	domaintypes "didstore/internal/domain/types"
)

//go:generate mockgen -destination=../../backend/mocks/backend.go -package=mocks didstore/internal/domain/interfaces Backend

// Backend is the ledger-backed resolver that anchors DID state. Calls may
// block on the network and honour ctx's deadline.
type Backend interface {
	// Resolve returns the ledger's current record, or nil when the DID was
	// never published. force bypasses any backend-side cache.
	Resolve(ctx context.Context, did domaintypes.DID, force bool) (*domaintypes.ResolvedRecord, error)

	// Publish submits a create or update and returns the new transaction id.
	Publish(ctx context.Context, req *domaintypes.Request) (string, error)

	// Deactivate submits a deactivation and returns its transaction id.
	Deactivate(ctx context.Context, req *domaintypes.Request) (string, error)
}
