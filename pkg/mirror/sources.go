package mirror

import (
	"context"

	"github.com/luxfi/mdx/pkg/book"
	"github.com/luxfi/mdx/pkg/events"
)

// TransactionRecords is the raw log output of one remote transaction.
type TransactionRecords struct {
	Signature events.Signature
	Records   [][]byte
}

// SnapshotSource loads the full set of resting orders for a market from
// the remote program's current state, together with the ledger sequence
// number the snapshot is as-of. Seeding with that sequence arms the
// stale-batch gate so fetched batches older than the snapshot state are
// dropped instead of applied on top of it. Used once at startup and again
// whenever the mirror must be rebuilt.
type SnapshotSource interface {
	Snapshot(ctx context.Context, market events.Account) ([]book.RestingOrder, uint64, error)
}

// RecordSource fetches the raw event records of transactions newer than
// the given ledger sequence number, oldest first.
type RecordSource interface {
	FetchRecords(ctx context.Context, market events.Account, afterSequence uint64) ([]TransactionRecords, error)
}
