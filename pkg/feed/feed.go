// Package feed ingests level-2 market data from external venues over
// websocket, mirrors it into an order book keyed by decimal price, and
// publishes a volume-weighted fair price after every book change. Fair
// prices from reference venues are used to sanity-check the primary
// market's mirror, not to trade against.
package feed

import "time"

// FairPriceUpdate is one fair-price observation from a venue.
type FairPriceUpdate struct {
	Venue     string
	ProductID string
	Price     float64
	Time      time.Time
}

// Config controls a venue listener.
type Config struct {
	// URL is the venue's websocket endpoint.
	URL string
	// ProductID is the venue's market identifier, e.g. "SOL-USD".
	ProductID string
	// VWAPLevels is the book depth the fair price is computed over.
	VWAPLevels int
	// ReconnectDelay is the wait before redialing after a dropped
	// connection.
	ReconnectDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:            "wss://ws-feed.exchange.coinbase.com",
		ProductID:      "SOL-USD",
		VWAPLevels:     3,
		ReconnectDelay: 5 * time.Second,
	}
}
