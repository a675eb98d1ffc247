package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"valutahub/internal/config"
	"valutahub/internal/currency"
	"valutahub/internal/handlers"
	"valutahub/internal/ledger"
	"valutahub/internal/rates"
	"valutahub/internal/services"
	"valutahub/internal/storage"
	"valutahub/internal/storage/jsonfile"
	"valutahub/internal/storage/memory"
	"valutahub/internal/storage/postgres"
	"valutahub/internal/websocket"
)

func main() {
	cfg := config.Load()
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	registry := currency.DefaultRegistry()
	if _, err := registry.Resolve(cfg.BaseCurrency); err != nil {
		log.Fatal().Err(err).Str("base", cfg.BaseCurrency).Msg("unknown base currency")
	}
	initialBalance, err := decimal.NewFromString(cfg.InitialBaseBalance)
	if err != nil || initialBalance.IsNegative() {
		log.Fatal().Str("value", cfg.InitialBaseBalance).Msg("invalid initial balance")
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to open store")
	}
	defer closeStore()

	coinGecko, err := rates.NewCoinGecko(cfg.CoinGeckoURL, cfg.BaseCurrency, rates.DefaultCoinIDs, cfg.SourceTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build coingecko source")
	}
	exchangeRate, err := rates.NewExchangeRateAPI(cfg.ExchangeRateAPIURL, cfg.ExchangeRateAPIKey, cfg.BaseCurrency, registry.CodesByKind(currency.Fiat), cfg.SourceTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build exchangerate source")
	}
	aggregator := rates.NewAggregator([]rates.Source{coinGecko, exchangeRate}, log)
	cache := rates.NewCache(store, aggregator, cfg.RatesTTL, log)

	hub := websocket.NewHub()
	cache.SetBroadcaster(hub)

	ledg := ledger.New(store)
	users := services.NewUserService(store, ledg, cfg.BaseCurrency, initialBalance, log)
	transactions := services.NewTransactionService(registry, cache, ledg, hub, cfg.BaseCurrency, log)

	handler := handlers.New(cfg, users, transactions, store, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("base", cfg.BaseCurrency).Msg("valutahub API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("shutdown error")
	}
}

func openStore(cfg config.Config) (storage.Store, func(), error) {
	switch cfg.StorageDriver {
	case "postgres":
		store, err := postgres.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "memory":
		return memory.New(), func() {}, nil
	default:
		store, err := jsonfile.New(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
