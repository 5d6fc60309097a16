// Package stream fans translated market events out to NATS subjects so
// downstream consumers (UIs, strategy processes, recorders) can follow a
// market without running their own mirror.
package stream

import (
	"encoding/json"

	"github.com/luxfi/log"
	"github.com/nats-io/nats.go"

	"github.com/luxfi/mdx/pkg/events"
	"github.com/luxfi/mdx/pkg/mirror"
)

var _ mirror.Handler = (*Publisher)(nil)

// Config controls the publisher.
type Config struct {
	// URL is the NATS server address.
	URL string
	// SubjectPrefix namespaces this process's subjects.
	SubjectPrefix string
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "mdx",
	}
}

// Publisher implements mirror.Handler by publishing JSON payloads to
// <prefix>.trades.<market>, <prefix>.book.<market>, and
// <prefix>.summaries.<market>.
type Publisher struct {
	cfg    Config
	nc     *nats.Conn
	logger log.Logger
}

// Connect dials NATS and wraps the connection in a Publisher.
func Connect(cfg Config, logger log.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultConfig().URL
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name("mdx-publisher"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	return NewPublisher(nc, cfg, logger), nil
}

// NewPublisher wraps an existing connection. The caller keeps ownership
// of the connection unless it closes the publisher.
func NewPublisher(nc *nats.Conn, cfg Config, logger log.Logger) *Publisher {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultConfig().SubjectPrefix
	}
	if logger == nil {
		logger = log.Root().New("module", "stream")
	}
	return &Publisher{cfg: cfg, nc: nc, logger: logger}
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// TradeMessage is the payload published for each fill.
type TradeMessage struct {
	Market              string `json:"market"`
	SequenceNumber      uint64 `json:"sequenceNumber"`
	OrderSequenceNumber uint64 `json:"orderSequenceNumber"`
	Side                string `json:"side"`
	PriceInTicks        uint64 `json:"priceInTicks"`
	BaseLotsFilled      uint64 `json:"baseLotsFilled"`
	BaseLotsRemaining   uint64 `json:"baseLotsRemaining"`
	IsFullFill          bool   `json:"isFullFill"`
	Maker               string `json:"maker"`
	Taker               string `json:"taker"`
	Slot                uint64 `json:"slot"`
	Timestamp           int64  `json:"timestamp"`
}

// BookMessage is the payload published for place, reduce, and evict
// events.
type BookMessage struct {
	Market         string `json:"market"`
	SequenceNumber uint64 `json:"sequenceNumber"`
	Kind           string `json:"kind"`
	Slot           uint64 `json:"slot"`
	Timestamp      int64  `json:"timestamp"`
}

// SummaryMessage is the payload published for fill summaries.
type SummaryMessage struct {
	Market         string `json:"market"`
	SequenceNumber uint64 `json:"sequenceNumber"`
	ClientOrderID  string `json:"clientOrderId"`
	BaseLots       uint64 `json:"baseLots"`
	QuoteLots      uint64 `json:"quoteLots"`
	FeeLots        uint64 `json:"feeLots"`
	TradeDirection int8   `json:"tradeDirection"`
	Timestamp      int64  `json:"timestamp"`
}

func (p *Publisher) OnTrade(ev events.Event) {
	f, ok := ev.Details.(events.Fill)
	if !ok {
		return
	}
	p.publish("trades", ev.Market, TradeMessage{
		Market:              ev.Market.String(),
		SequenceNumber:      ev.SequenceNumber,
		OrderSequenceNumber: f.OrderSequenceNumber,
		Side:                f.SideFilled.String(),
		PriceInTicks:        uint64(f.PriceInTicks),
		BaseLotsFilled:      uint64(f.BaseLotsFilled),
		BaseLotsRemaining:   uint64(f.BaseLotsRemaining),
		IsFullFill:          f.IsFullFill,
		Maker:               f.Maker.String(),
		Taker:               f.Taker.String(),
		Slot:                ev.Slot,
		Timestamp:           ev.Timestamp,
	})
}

func (p *Publisher) OnBookUpdate(ev events.Event) {
	p.publish("book", ev.Market, BookMessage{
		Market:         ev.Market.String(),
		SequenceNumber: ev.SequenceNumber,
		Kind:           ev.Details.Kind().String(),
		Slot:           ev.Slot,
		Timestamp:      ev.Timestamp,
	})
}

func (p *Publisher) OnFillSummary(ev events.Event) {
	fs, ok := ev.Details.(events.FillSummary)
	if !ok {
		return
	}
	p.publish("summaries", ev.Market, SummaryMessage{
		Market:         ev.Market.String(),
		SequenceNumber: ev.SequenceNumber,
		ClientOrderID:  fs.ClientOrderID.String(),
		BaseLots:       uint64(fs.TotalBaseLotsFilled),
		QuoteLots:      uint64(fs.TotalQuoteLotsFilledInclFees),
		FeeLots:        uint64(fs.TotalQuoteLotsFees),
		TradeDirection: fs.TradeDirection,
		Timestamp:      ev.Timestamp,
	})
}

// publish never blocks the mirror's writer path; failures are logged and
// the event is dropped.
func (p *Publisher) publish(topic string, market events.Account, payload any) {
	subject := p.cfg.SubjectPrefix + "." + topic + "." + market.String()
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("marshal payload", "subject", subject, "err", err)
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn("publish failed", "subject", subject, "err", err)
	}
}
