package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/luxfi/log"

	"github.com/luxfi/mdx/pkg/book"
)

// BinanceListener subscribes to a partial-depth stream. Unlike the
// Coinbase feed, every message carries a full top-of-book snapshot, so
// the local book is rebuilt per message rather than patched.
type BinanceListener struct {
	cfg     Config
	logger  log.Logger
	book    *book.Orderbook[book.DecimalPrice, book.FloatSize]
	updates chan<- FairPriceUpdate
}

// DefaultBinanceConfig streams 20 levels at 100ms for the SOL/USDT pair.
func DefaultBinanceConfig() Config {
	return Config{
		URL:            "wss://stream.binance.com:9443/ws/solusdt@depth20@100ms",
		ProductID:      "SOLUSDT",
		VWAPLevels:     3,
		ReconnectDelay: 5 * time.Second,
	}
}

func NewBinanceListener(cfg Config, updates chan<- FairPriceUpdate, logger log.Logger) *BinanceListener {
	def := DefaultBinanceConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.ProductID == "" {
		cfg.ProductID = def.ProductID
	}
	if cfg.VWAPLevels <= 0 {
		cfg.VWAPLevels = def.VWAPLevels
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if logger == nil {
		logger = log.Root().New("module", "feed", "venue", "binance")
	}
	return &BinanceListener{
		cfg:     cfg,
		logger:  logger,
		book:    book.New[book.DecimalPrice, book.FloatSize](book.LessDecimalPrice, 1, 1),
		updates: updates,
	}
}

func (l *BinanceListener) Book() *book.Orderbook[book.DecimalPrice, book.FloatSize] {
	return l.book
}

// Run dials the stream and processes depth messages until the context is
// canceled, redialing after connection failures.
func (l *BinanceListener) Run(ctx context.Context) error {
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

func (l *BinanceListener) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

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

type depthMessage struct {
	LastUpdateID uint64     `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

func (l *BinanceListener) handleMessage(data []byte) error {
	var msg depthMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	if len(msg.Bids) == 0 && len(msg.Asks) == 0 {
		return nil
	}
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

	price, ok := l.book.VWAP(l.cfg.VWAPLevels)
	if !ok {
		return nil
	}
	select {
	case l.updates <- FairPriceUpdate{
		Venue:     "binance",
		ProductID: l.cfg.ProductID,
		Price:     price,
		Time:      time.Now(),
	}:
	default:
		l.logger.Debug("fair price dropped, consumer behind", "price", price)
	}
	return nil
}
