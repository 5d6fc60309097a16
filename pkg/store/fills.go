// Package store journals translated fills and fill summaries to a
// key-value database so trade history survives mirror rebuilds. The book
// itself is never persisted; it is always reseeded from a snapshot.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/log"

	"github.com/luxfi/mdx/pkg/events"
	"github.com/luxfi/mdx/pkg/mirror"
	"github.com/luxfi/mdx/pkg/units"
)

var _ mirror.Handler = (*FillStore)(nil)

const (
	fillKeyFmt    = "fill:%s:%020d:%06d"
	summaryKeyFmt = "summary:%s:%020d"
)

// FillRecord is the stored form of one fill.
type FillRecord struct {
	Market              string `json:"market"`
	SequenceNumber      uint64 `json:"sequenceNumber"`
	Index               uint64 `json:"index"`
	OrderSequenceNumber uint64 `json:"orderSequenceNumber"`
	Maker               string `json:"maker"`
	Taker               string `json:"taker"`
	Side                string `json:"side"`
	PriceInTicks        uint64 `json:"priceInTicks"`
	BaseLotsFilled      uint64 `json:"baseLotsFilled"`
	BaseLotsRemaining   uint64 `json:"baseLotsRemaining"`
	QuoteAtomsFilled    uint64 `json:"quoteAtomsFilled"`
	IsFullFill          bool   `json:"isFullFill"`
	Slot                uint64 `json:"slot"`
	Timestamp           int64  `json:"timestamp"`
	Signature           string `json:"signature"`
}

// SummaryRecord is the stored form of one fill summary.
type SummaryRecord struct {
	Market         string `json:"market"`
	SequenceNumber uint64 `json:"sequenceNumber"`
	ClientOrderID  string `json:"clientOrderId"`
	BaseLots       uint64 `json:"baseLots"`
	QuoteLots      uint64 `json:"quoteLots"`
	FeeLots        uint64 `json:"feeLots"`
	TradeDirection int8   `json:"tradeDirection"`
	Timestamp      int64  `json:"timestamp"`
}

// FillStore implements mirror.Handler and writes one record per fill,
// keyed so that a prefix iteration over a market returns fills in ledger
// order.
type FillStore struct {
	db     database.Database
	conv   *units.Converter
	logger log.Logger
}

func NewFillStore(db database.Database, conv *units.Converter, logger log.Logger) *FillStore {
	if logger == nil {
		logger = log.Root().New("module", "store")
	}
	return &FillStore{db: db, conv: conv, logger: logger}
}

// OnTrade journals the fill. Write failures are logged, not propagated;
// a broken journal must not stall the mirror's writer path.
func (s *FillStore) OnTrade(ev events.Event) {
	f, ok := ev.Details.(events.Fill)
	if !ok {
		return
	}
	rec := FillRecord{
		Market:              ev.Market.String(),
		SequenceNumber:      ev.SequenceNumber,
		Index:               ev.Index,
		OrderSequenceNumber: f.OrderSequenceNumber,
		Maker:               f.Maker.String(),
		Taker:               f.Taker.String(),
		Side:                f.SideFilled.String(),
		PriceInTicks:        uint64(f.PriceInTicks),
		BaseLotsFilled:      uint64(f.BaseLotsFilled),
		BaseLotsRemaining:   uint64(f.BaseLotsRemaining),
		IsFullFill:          f.IsFullFill,
		Slot:                ev.Slot,
		Timestamp:           ev.Timestamp,
		Signature:           ev.Signature.String(),
	}
	if s.conv != nil {
		rec.QuoteAtomsFilled = uint64(s.conv.OrderToQuoteAtoms(f.BaseLotsFilled, f.PriceInTicks))
	}
	key := fmt.Sprintf(fillKeyFmt, rec.Market, ev.SequenceNumber, ev.Index)
	s.put(key, rec)
}

// OnBookUpdate is a no-op; the book is not persisted.
func (s *FillStore) OnBookUpdate(events.Event) {}

// OnFillSummary journals the batch summary.
func (s *FillStore) OnFillSummary(ev events.Event) {
	fs, ok := ev.Details.(events.FillSummary)
	if !ok {
		return
	}
	rec := SummaryRecord{
		Market:         ev.Market.String(),
		SequenceNumber: ev.SequenceNumber,
		ClientOrderID:  fs.ClientOrderID.String(),
		BaseLots:       uint64(fs.TotalBaseLotsFilled),
		QuoteLots:      uint64(fs.TotalQuoteLotsFilledInclFees),
		FeeLots:        uint64(fs.TotalQuoteLotsFees),
		TradeDirection: fs.TradeDirection,
		Timestamp:      ev.Timestamp,
	}
	key := fmt.Sprintf(summaryKeyFmt, rec.Market, ev.SequenceNumber)
	s.put(key, rec)
}

func (s *FillStore) put(key string, rec any) {
	data, err := json.Marshal(rec)
	if err != nil {
		s.logger.Error("marshal record", "key", key, "err", err)
		return
	}
	if err := s.db.Put([]byte(key), data); err != nil {
		s.logger.Error("journal write failed", "key", key, "err", err)
	}
}

// Fills returns a market's journaled fills in ledger order. limit <= 0
// returns all of them.
func (s *FillStore) Fills(market events.Account, limit int) ([]FillRecord, error) {
	prefix := []byte(fmt.Sprintf("fill:%s:", market.String()))
	it := s.db.NewIteratorWithPrefix(prefix)
	defer it.Release()

	var out []FillRecord
	for it.Next() {
		var rec FillRecord
		if err := json.Unmarshal(it.Value(), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summaries returns a market's journaled fill summaries in ledger order.
func (s *FillStore) Summaries(market events.Account, limit int) ([]SummaryRecord, error) {
	prefix := []byte(fmt.Sprintf("summary:%s:", market.String()))
	it := s.db.NewIteratorWithPrefix(prefix)
	defer it.Release()

	var out []SummaryRecord
	for it.Next() {
		var rec SummaryRecord
		if err := json.Unmarshal(it.Value(), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return out, nil
}
