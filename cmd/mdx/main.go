// mdx is a market-data daemon: it mirrors one exchange market from a
// captured or polled event stream, journals fills, publishes trades and
// fair prices, and serves prometheus metrics.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/database/manager"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luxfi/mdx/pkg/events"
	"github.com/luxfi/mdx/pkg/feed"
	"github.com/luxfi/mdx/pkg/mirror"
	"github.com/luxfi/mdx/pkg/store"
	"github.com/luxfi/mdx/pkg/stream"
	"github.com/luxfi/mdx/pkg/units"
)

const defaultDataDir = ".mdx"

type Config struct {
	Market   string
	MetaPath string
	LogLevel string

	DataDir     string
	MetricsAddr string
	NATSURL     string

	SnapshotPath string
	RecordsPath  string
	PollInterval time.Duration

	CoinbaseProduct string
	BinanceEnabled  bool
	VWAPLevels      int
}

func main() {
	config := &Config{}
	flag.StringVar(&config.Market, "market", "", "Market id, 32 bytes hex")
	flag.StringVar(&config.MetaPath, "meta", "", "Market metadata JSON file (defaults to SOL/USDC scaling)")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level")
	flag.StringVar(&config.DataDir, "data-dir", defaultDataDir, "Data directory under $HOME ('' disables the fill journal)")
	flag.StringVar(&config.MetricsAddr, "metrics-addr", ":9100", "Prometheus listen address ('' disables)")
	flag.StringVar(&config.NATSURL, "nats", "", "NATS server URL ('' disables publishing)")
	flag.StringVar(&config.SnapshotPath, "snapshot", "", "Resting-order snapshot JSON file")
	flag.StringVar(&config.RecordsPath, "records", "", "Captured transaction record log, JSON lines")
	flag.DurationVar(&config.PollInterval, "poll-interval", time.Second, "Event poll interval")
	flag.StringVar(&config.CoinbaseProduct, "coinbase-product", "", "Coinbase product to follow, e.g. SOL-USD ('' disables)")
	flag.BoolVar(&config.BinanceEnabled, "binance", false, "Follow the Binance reference feed")
	flag.IntVar(&config.VWAPLevels, "vwap-levels", 3, "Book depth for fair price computation")
	flag.Parse()

	level, _ := log.ToLevel(config.LogLevel)
	logger := log.NewTestLogger(level)

	if err := run(config, logger); err != nil {
		logger.Crit("exiting", "error", err)
		os.Exit(1)
	}
}

func run(config *Config, logger log.Logger) error {
	market, err := parseMarket(config.Market)
	if err != nil {
		return err
	}
	meta, err := loadMetadata(config.MetaPath)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	client, err := mirror.NewClient(market, meta, logger.New("module", "mirror"), registry)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	var wg sync.WaitGroup

	if config.DataDir != "" {
		db, err := openDatabase(config.DataDir, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		client.AddHandler(store.NewFillStore(db, client.Converter(), logger.New("module", "store")))
	}

	if config.NATSURL != "" {
		pub, err := stream.Connect(stream.Config{URL: config.NATSURL}, logger.New("module", "stream"))
		if err != nil {
			return err
		}
		defer pub.Close()
		client.AddHandler(pub)
		logger.Info("publishing to NATS", "url", config.NATSURL)
	}
	client.AddHandler(mirror.NewLogHandler(logger.New("module", "events")))

	if config.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: config.MetricsAddr, Handler: mux}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("metrics listening", "addr", config.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	updates := make(chan feed.FairPriceUpdate, 64)
	if config.CoinbaseProduct != "" {
		listener := feed.NewCoinbaseListener(feed.Config{
			ProductID:  config.CoinbaseProduct,
			VWAPLevels: config.VWAPLevels,
		}, updates, logger.New("module", "feed", "venue", "coinbase"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			listener.Run(ctx)
		}()
	}
	if config.BinanceEnabled {
		listener := feed.NewBinanceListener(feed.DefaultBinanceConfig(), updates, logger.New("module", "feed", "venue", "binance"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			listener.Run(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumeFairPrices(ctx, client, updates, logger)
	}()

	if config.SnapshotPath != "" || config.RecordsPath != "" {
		source, err := mirror.OpenFileSource(config.SnapshotPath, config.RecordsPath)
		if err != nil {
			return err
		}
		poller := mirror.NewPoller(mirror.Config{
			PollInterval: config.PollInterval,
			SeedOnStart:  config.SnapshotPath != "",
		}, client, source, source, logger.New("module", "poller"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("poller stopped", "error", err)
				cancel()
			}
		}()
	}

	logger.Info("mdx running",
		"market", market.String(),
		"tickSize", meta.TickSizeInQuoteAtomsPerBaseUnit,
		"baseLotSize", meta.BaseAtomsPerBaseLot,
	)
	<-ctx.Done()
	wg.Wait()
	return nil
}

// consumeFairPrices compares venue fair prices against the mirror's own
// VWAP as prices arrive.
func consumeFairPrices(ctx context.Context, client *mirror.Client, updates <-chan feed.FairPriceUpdate, logger log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			mirrorPrice, ok := client.VWAP(3)
			if ok {
				logger.Info("fair price",
					"venue", u.Venue,
					"product", u.ProductID,
					"price", u.Price,
					"mirrorVWAP", mirrorPrice,
				)
			} else {
				logger.Info("fair price",
					"venue", u.Venue,
					"product", u.ProductID,
					"price", u.Price,
				)
			}
		}
	}
}

func parseMarket(s string) (events.Account, error) {
	var market events.Account
	if s == "" {
		return market, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(market) {
		return market, fmt.Errorf("market must be %d bytes of hex", len(market))
	}
	copy(market[:], raw)
	return market, nil
}

// loadMetadata reads market scaling constants, defaulting to the SOL/USDC
// configuration when no file is given.
func loadMetadata(path string) (units.MarketMetadata, error) {
	meta := units.MarketMetadata{
		BaseDecimals:                    9,
		QuoteDecimals:                   6,
		BaseAtomsPerRawBaseUnit:         1_000_000_000,
		QuoteAtomsPerQuoteUnit:          1_000_000,
		QuoteAtomsPerQuoteLot:           10,
		BaseAtomsPerBaseLot:             10_000_000,
		TickSizeInQuoteAtomsPerBaseUnit: 1000,
		NumBaseLotsPerBaseUnit:          100,
		RawBaseUnitsPerBaseUnit:         1,
	}
	if path == "" {
		return meta, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("metadata %s: %w", path, err)
	}
	return meta, nil
}

func openDatabase(dataDir string, logger log.Logger) (database.Database, error) {
	dataPath := filepath.Join(os.Getenv("HOME"), dataDir)
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, err
	}
	dbManager := manager.NewManager(dataPath, nil)
	dbConfig := manager.DefaultBadgerDBConfig("badgerdb")
	dbConfig.Namespace = "mdx"
	db, err := dbManager.New(dbConfig)
	if err != nil {
		logger.Warn("falling back to in-memory database", "error", err)
		return dbManager.New(manager.DefaultMemoryConfig())
	}
	logger.Info("fill journal open", "path", filepath.Join(dataPath, "badgerdb"))
	return db, nil
}
