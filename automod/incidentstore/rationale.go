package incidentstore

import (
	"context"
)

// Durable audit-id -> classifier rationale map. Entries are never expired, so a details lookup works for as long as the report exists.
type RationaleStore interface {
	SaveRationale(ctx context.Context, auditID int64, rationale string) error
	// Returns false (and no error) if no rationale was stored under auditID.
	GetRationale(ctx context.Context, auditID int64) (string, bool, error)
}
