package mirror

import (
	"context"
	"sort"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/mdx/pkg/events"
)

// Config controls the polling loop.
type Config struct {
	// PollInterval is the delay between fetch cycles.
	PollInterval time.Duration
	// SeedOnStart loads a full snapshot before the first poll.
	SeedOnStart bool
}

func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		SeedOnStart:  true,
	}
}

// Poller drives one mirror from the remote ledger: it seeds the book from
// a snapshot, then periodically fetches new transaction records, decodes
// them, and applies the batches in ledger sequence order on a single
// goroutine.
type Poller struct {
	cfg       Config
	client    *Client
	snapshots SnapshotSource
	records   RecordSource
	logger    log.Logger
}

func NewPoller(cfg Config, client *Client, snapshots SnapshotSource, records RecordSource, logger log.Logger) *Poller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if logger == nil {
		logger = log.Root().New("module", "poller")
	}
	return &Poller{
		cfg:       cfg,
		client:    client,
		snapshots: snapshots,
		records:   records,
		logger:    logger,
	}
}

// Run blocks until the context is canceled or the mirror reports a hard
// failure such as ErrCrossedBook. Fetch errors are logged and retried on
// the next tick.
func (p *Poller) Run(ctx context.Context) error {
	if p.cfg.SeedOnStart {
		if err := p.seed(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				return err
			}
		}
	}
}

func (p *Poller) seed(ctx context.Context) error {
	orders, asOf, err := p.snapshots.Snapshot(ctx, p.client.Market())
	if err != nil {
		return err
	}
	p.client.Seed(orders, asOf)
	return nil
}

// poll runs one fetch-decode-apply cycle. It returns an error only for
// failures that corrupt the mirror; transient fetch errors are retried.
func (p *Poller) poll(ctx context.Context) error {
	start := time.Now()
	defer func() {
		p.client.metrics.PollDuration.Observe(time.Since(start).Seconds())
	}()

	txs, err := p.records.FetchRecords(ctx, p.client.Market(), p.client.LastSequence())
	if err != nil {
		p.logger.Warn("fetch failed", "err", err)
		return nil
	}
	if len(txs) == 0 {
		return nil
	}

	var batches []events.Batch
	for _, tx := range txs {
		batches = append(batches, p.client.DecodeTransaction(tx.Signature, tx.Records)...)
	}
	// Crossing resolution and fill netting are order dependent; always
	// apply in the order the ledger produced the batches.
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].Header.SequenceNumber < batches[j].Header.SequenceNumber
	})

	for _, b := range batches {
		if err := p.client.ApplyBatch(b); err != nil {
			p.logger.Error("apply failed",
				"seq", b.Header.SequenceNumber,
				"err", err,
			)
			return err
		}
	}
	p.logger.Debug("poll applied",
		"transactions", len(txs),
		"batches", len(batches),
		"lastSeq", p.client.LastSequence(),
	)
	return nil
}
