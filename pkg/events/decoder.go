package events

import (
	"github.com/luxfi/log"

	"github.com/luxfi/mdx/pkg/book"
)

// Decoder turns the raw records of a transaction into translated event
// batches. It is stateless apart from its logger and safe for concurrent
// use.
type Decoder struct {
	logger log.Logger
}

func NewDecoder(logger log.Logger) *Decoder {
	if logger == nil {
		logger = log.Root().New("module", "events")
	}
	return &Decoder{logger: logger}
}

// Decode parses every record emitted by one transaction and regroups them
// into logical batches. Records sharing a header belong to the same batch
// even when other records interleave between them. Malformed records are
// logged and skipped rather than failing the whole transaction.
func (d *Decoder) Decode(sig Signature, records [][]byte) []Batch {
	type group struct {
		header Header
		events []rawEvent
	}
	var groups []*group
	byHeader := make(map[Header]*group)

	for i, data := range records {
		rec, err := decodeRecord(sig, data)
		if err != nil {
			d.logger.Warn("skipping malformed record",
				"signature", sig.String(),
				"record", i,
				"err", err,
			)
			continue
		}
		g, ok := byHeader[rec.header]
		if !ok {
			g = &group{header: rec.header}
			byHeader[rec.header] = g
			groups = append(groups, g)
		}
		g.events = append(g.events, rec.events...)
	}

	batches := make([]Batch, 0, len(groups))
	for _, g := range groups {
		batches = append(batches, d.translate(g.header, g.events))
	}
	return batches
}

// translate denormalizes the header into each event and annotates the
// batch with its trade direction.
func (d *Decoder) translate(h Header, raws []rawEvent) Batch {
	b := Batch{
		Header: h,
		Events: make([]Event, 0, len(raws)),
	}
	for _, raw := range raws {
		details := raw.details
		if f, ok := details.(Fill); ok {
			// The taker is not on the wire; every fill in a batch
			// was aggressed by the transaction signer.
			f.Taker = h.Signer
			details = f
			if b.TradeDirection == 0 {
				b.TradeDirection = tradeDirection(f.SideFilled)
			}
		}
		b.Events = append(b.Events, Event{
			Market:         h.Market,
			SequenceNumber: h.SequenceNumber,
			Slot:           h.Slot,
			Timestamp:      h.Timestamp,
			Signature:      h.Signature,
			Signer:         h.Signer,
			Index:          raw.index,
			Details:        details,
		})
	}
	// Fill summaries inherit the batch direction.
	for i, ev := range b.Events {
		if fs, ok := ev.Details.(FillSummary); ok {
			fs.TradeDirection = b.TradeDirection
			b.Events[i].Details = fs
		}
	}
	return b
}

// tradeDirection maps the side a fill rested on to the aggressor's
// direction: consuming resting bids is an aggressive sell, consuming
// resting asks an aggressive buy.
func tradeDirection(restingSide book.Side) int8 {
	if restingSide == book.Bid {
		return -1
	}
	return 1
}
