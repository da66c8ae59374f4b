package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"repello/internal/api"
	"repello/internal/engine"
)

func main() {
	listenAddr := flag.String("listen", ":8080", "HTTP listen address")
	tickSize := flag.String("tick-size", "0.01", "minimum price increment")
	tickInterval := flag.Duration("tick-interval", 250*time.Millisecond, "expiration sweep interval")
	invertModifyGate := flag.Bool("invert-modify-gate", false, "use the business-intent reading of Modify's minimum-quantity gate instead of the literal contract")
	logLevel := flag.String("log-level", "info", "zerolog level (debug, info, warn, error)")
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()

	ts, err := decimal.NewFromString(*tickSize)
	if err != nil {
		log.Fatal().Err(err).Str("tick_size", *tickSize).Msg("invalid tick size")
	}

	eng := engine.New(
		engine.WithTickInterval(*tickInterval),
		engine.WithInvertModifyGate(*invertModifyGate),
		engine.WithLogger(log),
	)
	eng.Start()
	defer func() {
		if err := eng.Stop(); err != nil {
			log.Error().Err(err).Msg("engine did not stop cleanly")
		}
	}()

	server := api.NewServer(*listenAddr, eng, ts, log)
	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: server.Handler(),
	}

	go func() {
		log.Info().Str("addr", *listenAddr).Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
