package mirror

import (
	"github.com/luxfi/log"

	"github.com/luxfi/mdx/pkg/events"
)

// Handler receives translated events after the mirror has applied them.
// Fills arrive through OnTrade; place, reduce, and evict events through
// OnBookUpdate; fill summaries through OnFillSummary. Fee and
// time-in-force events are not dispatched.
//
// Handlers run on the writer goroutine and must not block.
type Handler interface {
	OnTrade(ev events.Event)
	OnBookUpdate(ev events.Event)
	OnFillSummary(ev events.Event)
}

// LogHandler writes every dispatched event to a structured logger.
type LogHandler struct {
	logger log.Logger
}

func NewLogHandler(logger log.Logger) *LogHandler {
	if logger == nil {
		logger = log.Root().New("module", "mirror")
	}
	return &LogHandler{logger: logger}
}

func (h *LogHandler) OnTrade(ev events.Event) {
	f := ev.Details.(events.Fill)
	h.logger.Info("trade",
		"market", ev.Market.String(),
		"seq", ev.SequenceNumber,
		"orderSeq", f.OrderSequenceNumber,
		"side", f.SideFilled.String(),
		"priceTicks", uint64(f.PriceInTicks),
		"filledLots", uint64(f.BaseLotsFilled),
		"remainingLots", uint64(f.BaseLotsRemaining),
		"fullFill", f.IsFullFill,
	)
}

func (h *LogHandler) OnBookUpdate(ev events.Event) {
	h.logger.Debug("book update",
		"market", ev.Market.String(),
		"seq", ev.SequenceNumber,
		"kind", ev.Details.Kind().String(),
	)
}

func (h *LogHandler) OnFillSummary(ev events.Event) {
	fs := ev.Details.(events.FillSummary)
	h.logger.Info("fill summary",
		"market", ev.Market.String(),
		"seq", ev.SequenceNumber,
		"baseLots", uint64(fs.TotalBaseLotsFilled),
		"quoteLots", uint64(fs.TotalQuoteLotsFilledInclFees),
		"feeLots", uint64(fs.TotalQuoteLotsFees),
		"direction", fs.TradeDirection,
	)
}
