package mirror

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/mdx/pkg/book"
	"github.com/luxfi/mdx/pkg/events"
	"github.com/luxfi/mdx/pkg/units"
)

type fakeSource struct {
	orders    []book.RestingOrder
	asOf      uint64
	txs       []TransactionRecords
	snapshots int
	fetches   int
}

func (f *fakeSource) Snapshot(context.Context, events.Account) ([]book.RestingOrder, uint64, error) {
	f.snapshots++
	return f.orders, f.asOf, nil
}

func (f *fakeSource) FetchRecords(context.Context, events.Account, uint64) ([]TransactionRecords, error) {
	f.fetches++
	if f.fetches > 1 {
		return nil, nil
	}
	return f.txs, nil
}

func encodedBatch(t *testing.T, seq uint64, details ...events.Details) []byte {
	t.Helper()
	raw, err := events.EncodeRecord(events.Header{SequenceNumber: seq}, details)
	require.NoError(t, err)
	return raw
}

func TestPollerSeedsAndApplies(t *testing.T) {
	// Two batches delivered out of order; the poller must apply them in
	// ledger sequence order. The batch at 100 predates the snapshot and
	// must be dropped by the gate armed with the snapshot's sequence.
	var sig events.Signature
	source := &fakeSource{
		orders: fixtureSnapshot(),
		asOf:   100,
		txs: []TransactionRecords{{
			Signature: sig,
			Records: [][]byte{
				encodedBatch(t, 102,
					events.Evict{OrderSequenceNumber: 30, PriceInTicks: 0x58bf, BaseLotsEvicted: 10},
				),
				encodedBatch(t, 100,
					events.Place{OrderSequenceNumber: 32, PriceInTicks: 0x58aa, BaseLotsPlaced: 99},
				),
				encodedBatch(t, 101,
					events.Place{OrderSequenceNumber: 30, PriceInTicks: 0x58bf, BaseLotsPlaced: 10},
				),
			},
		}},
	}

	client := newTestClient(t)
	poller := NewPoller(Config{PollInterval: time.Millisecond, SeedOnStart: true},
		client, source, source, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	require.Eventually(t, func() bool {
		return client.LastSequence() == 102
	}, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, 1, source.snapshots)
	// The place at 101 was evicted again at 102 and the pre-snapshot place
	// at 100 was dropped; the snapshot's three bids remain.
	bids := client.Bids()
	require.Len(t, bids, 3)
	for _, b := range bids {
		assert.NotEqual(t, units.Ticks(0x58aa), b.Key.PriceInTicks)
	}
	assert.Equal(t, units.BaseLots(0x043f), client.Ladder(1).Bids[0].SizeInBaseLots)
}

func TestPollerDefaultsInterval(t *testing.T) {
	client := newTestClient(t)
	p := NewPoller(Config{}, client, &fakeSource{}, &fakeSource{}, testLogger())
	assert.Equal(t, time.Second, p.cfg.PollInterval)
}

func TestFileSourceReplay(t *testing.T) {
	dir := t.TempDir()

	snapshot := snapshotFile{
		AsOfSequence: 42,
		Orders: []snapshotOrder{
			{Side: "bid", PriceInTicks: 100, OrderSequenceNumber: 2, SizeInBaseLots: 5, Maker: "m1"},
			{Side: "ask", PriceInTicks: 105, OrderSequenceNumber: 1, SizeInBaseLots: 3, Maker: "m2"},
		},
	}
	snapData, err := json.Marshal(snapshot)
	require.NoError(t, err)
	snapPath := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(snapPath, snapData, 0o644))

	var sig events.Signature
	sig[0] = 0xab
	raw := encodedBatch(t, 7, events.Fee{QuoteLotsFees: 1})
	line := fmt.Sprintf(`{"signature":"%x","records":["%s"]}`,
		sig[:], base64.StdEncoding.EncodeToString(raw))
	recPath := filepath.Join(dir, "records.jsonl")
	require.NoError(t, os.WriteFile(recPath, []byte(line+"\n"), 0o644))

	source, err := OpenFileSource(snapPath, recPath)
	require.NoError(t, err)

	orders, asOf, err := source.Snapshot(context.Background(), events.Account{})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), asOf)
	require.Len(t, orders, 2)
	assert.Equal(t, book.Bid, orders[0].Side)
	assert.Equal(t, units.Ticks(100), orders[0].ID.PriceInTicks)
	assert.Equal(t, book.Ask, orders[1].Side)

	txs, err := source.FetchRecords(context.Background(), events.Account{}, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, sig, txs[0].Signature)
	require.Len(t, txs[0].Records, 1)
	assert.Equal(t, raw, txs[0].Records[0])

	// The log is served exactly once.
	txs, err = source.FetchRecords(context.Background(), events.Account{}, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestFileSourceBadInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"signature":"zz","records":[]}`), 0o644))
	_, err := OpenFileSource("", path)
	require.Error(t, err)
}
