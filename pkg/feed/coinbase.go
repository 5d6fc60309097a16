package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/luxfi/log"
	"github.com/shopspring/decimal"

	"github.com/luxfi/mdx/pkg/book"
)

// CoinbaseListener subscribes to Coinbase's level2 channel and keeps a
// local book for one product. Every snapshot or update recomputes the
// fair price and publishes it on the updates channel; sends never block,
// a slow consumer just misses intermediate observations.
type CoinbaseListener struct {
	cfg     Config
	logger  log.Logger
	book    *book.Orderbook[book.DecimalPrice, book.FloatSize]
	updates chan<- FairPriceUpdate
}

func NewCoinbaseListener(cfg Config, updates chan<- FairPriceUpdate, logger log.Logger) *CoinbaseListener {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.VWAPLevels <= 0 {
		cfg.VWAPLevels = def.VWAPLevels
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if logger == nil {
		logger = log.Root().New("module", "feed", "venue", "coinbase")
	}
	return &CoinbaseListener{
		cfg:     cfg,
		logger:  logger,
		book:    book.New[book.DecimalPrice, book.FloatSize](book.LessDecimalPrice, 1, 1),
		updates: updates,
	}
}

// Book exposes the mirrored venue book for readers.
func (l *CoinbaseListener) Book() *book.Orderbook[book.DecimalPrice, book.FloatSize] {
	return l.book
}

// Run dials the venue and processes messages until the context is
// canceled, redialing after connection failures.
func (l *CoinbaseListener) Run(ctx context.Context) error {
	for {
		err := l.connect(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Warn("connection lost, reconnecting",
			"url", l.cfg.URL,
			"delay", l.cfg.ReconnectDelay,
			"err", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.ReconnectDelay):
		}
	}
}

type subscribeRequest struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

func (l *CoinbaseListener) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock the read loop when the context ends.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	sub := subscribeRequest{
		Type:       "subscribe",
		ProductIDs: []string{l.cfg.ProductID},
		Channels:   []string{"level2_batch"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	l.logger.Info("subscribed", "product", l.cfg.ProductID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := l.handleMessage(data); err != nil {
			l.logger.Warn("dropping message", "err", err)
		}
	}
}

// venueMessage covers the level2 snapshot and l2update shapes. Prices
// and sizes arrive as strings.
type venueMessage struct {
	Type      string     `json:"type"`
	ProductID string     `json:"product_id"`
	Bids      [][]string `json:"bids"`
	Asks      [][]string `json:"asks"`
	Changes   [][]string `json:"changes"`
	Time      time.Time  `json:"time"`
	Message   string     `json:"message"`
}

func (l *CoinbaseListener) handleMessage(data []byte) error {
	var msg venueMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	switch msg.Type {
	case "snapshot":
		if err := l.applySnapshot(msg); err != nil {
			return err
		}
	case "l2update":
		if err := l.applyUpdate(msg); err != nil {
			return err
		}
	case "error":
		return fmt.Errorf("venue error: %s", msg.Message)
	default:
		// Subscription acks and heartbeats.
		return nil
	}
	l.publish(msg.Time)
	return nil
}

func (l *CoinbaseListener) applySnapshot(msg venueMessage) error {
	bids, err := parseLevels(msg.Bids)
	if err != nil {
		return err
	}
	asks, err := parseLevels(msg.Asks)
	if err != nil {
		return err
	}
	l.book.Clear()
	l.book.UpdateOrders(book.Bid, bids)
	l.book.UpdateOrders(book.Ask, asks)
	return nil
}

func (l *CoinbaseListener) applyUpdate(msg venueMessage) error {
	for _, change := range msg.Changes {
		if len(change) != 3 {
			return fmt.Errorf("l2update change has %d fields", len(change))
		}
		side := book.Bid
		if change[0] == "sell" {
			side = book.Ask
		}
		entry, err := parseLevel(change[1], change[2])
		if err != nil {
			return err
		}
		l.book.UpdateOrders(side, []book.Entry[book.DecimalPrice, book.FloatSize]{entry})
	}
	return nil
}

func parseLevels(raw [][]string) ([]book.Entry[book.DecimalPrice, book.FloatSize], error) {
	entries := make([]book.Entry[book.DecimalPrice, book.FloatSize], 0, len(raw))
	for _, level := range raw {
		if len(level) < 2 {
			return nil, fmt.Errorf("level has %d fields", len(level))
		}
		entry, err := parseLevel(level[0], level[1])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseLevel(priceStr, sizeStr string) (book.Entry[book.DecimalPrice, book.FloatSize], error) {
	var zero book.Entry[book.DecimalPrice, book.FloatSize]
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return zero, fmt.Errorf("bad price %q: %w", priceStr, err)
	}
	size, err := strconv.ParseFloat(sizeStr, 64)
	if err != nil {
		return zero, fmt.Errorf("bad size %q: %w", sizeStr, err)
	}
	return book.Entry[book.DecimalPrice, book.FloatSize]{
		Key:   book.DecimalPrice{Decimal: price},
		Value: book.FloatSize(size),
	}, nil
}

func (l *CoinbaseListener) publish(at time.Time) {
	price, ok := l.book.VWAP(l.cfg.VWAPLevels)
	if !ok {
		return
	}
	if at.IsZero() {
		at = time.Now()
	}
	update := FairPriceUpdate{
		Venue:     "coinbase",
		ProductID: l.cfg.ProductID,
		Price:     price,
		Time:      at,
	}
	select {
	case l.updates <- update:
	default:
		l.logger.Debug("fair price dropped, consumer behind", "price", price)
	}
}
