package mirror

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/luxfi/mdx/pkg/book"
	"github.com/luxfi/mdx/pkg/events"
	"github.com/luxfi/mdx/pkg/units"
)

// FileSource replays a captured session from disk: a JSON snapshot of
// resting orders plus a JSON-lines log of raw transaction records. It
// serves the whole log on the first fetch and nothing afterwards, which
// makes it useful for offline analysis and end-to-end testing without a
// ledger connection.
type FileSource struct {
	orders []book.RestingOrder
	asOf   uint64

	mu       sync.Mutex
	txs      []TransactionRecords
	consumed bool
}

type snapshotFile struct {
	AsOfSequence uint64          `json:"asOfSequence"`
	Orders       []snapshotOrder `json:"orders"`
}

type snapshotOrder struct {
	Side                string `json:"side"`
	PriceInTicks        uint64 `json:"priceInTicks"`
	OrderSequenceNumber uint64 `json:"orderSequenceNumber"`
	SizeInBaseLots      uint64 `json:"sizeInBaseLots"`
	Maker               string `json:"maker"`
}

type recordLine struct {
	Signature string   `json:"signature"`
	Records   []string `json:"records"`
}

// OpenFileSource loads a snapshot file and a record log. Either path may
// be empty, yielding an empty snapshot or an empty log.
func OpenFileSource(snapshotPath, recordsPath string) (*FileSource, error) {
	fs := &FileSource{}
	if snapshotPath != "" {
		if err := fs.loadSnapshot(snapshotPath); err != nil {
			return nil, err
		}
	}
	if recordsPath != "" {
		if err := fs.loadRecords(recordsPath); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

func (fs *FileSource) loadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw snapshotFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("snapshot %s: %w", path, err)
	}
	fs.asOf = raw.AsOfSequence
	fs.orders = make([]book.RestingOrder, 0, len(raw.Orders))
	for _, o := range raw.Orders {
		side := book.Bid
		if o.Side == book.Ask.String() {
			side = book.Ask
		}
		fs.orders = append(fs.orders, book.RestingOrder{
			Side: side,
			ID: book.OrderID{
				PriceInTicks:        units.Ticks(o.PriceInTicks),
				OrderSequenceNumber: o.OrderSequenceNumber,
			},
			Size:  units.BaseLots(o.SizeInBaseLots),
			Maker: o.Maker,
		})
	}
	return nil
}

func (fs *FileSource) loadRecords(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rl recordLine
		if err := json.Unmarshal(scanner.Bytes(), &rl); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		tx := TransactionRecords{}
		sig, err := hex.DecodeString(rl.Signature)
		if err != nil || len(sig) != len(tx.Signature) {
			return fmt.Errorf("%s:%d: bad signature", path, line)
		}
		copy(tx.Signature[:], sig)
		for _, enc := range rl.Records {
			rec, err := base64.StdEncoding.DecodeString(enc)
			if err != nil {
				return fmt.Errorf("%s:%d: %w", path, line, err)
			}
			tx.Records = append(tx.Records, rec)
		}
		fs.txs = append(fs.txs, tx)
	}
	return scanner.Err()
}

// Snapshot implements SnapshotSource.
func (fs *FileSource) Snapshot(context.Context, events.Account) ([]book.RestingOrder, uint64, error) {
	return fs.orders, fs.asOf, nil
}

// FetchRecords implements RecordSource. The whole log is returned on the
// first call; later calls return nothing.
func (fs *FileSource) FetchRecords(context.Context, events.Account, uint64) ([]TransactionRecords, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.consumed {
		return nil, nil
	}
	fs.consumed = true
	return fs.txs, nil
}
