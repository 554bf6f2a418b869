package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tg "github.com/go-telegram/bot"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/0xsamyy/buywatch/internal/config"
	"github.com/0xsamyy/buywatch/internal/feed"
	"github.com/0xsamyy/buywatch/internal/health"
	"github.com/0xsamyy/buywatch/internal/notify"
	"github.com/0xsamyy/buywatch/internal/store"
	"github.com/0xsamyy/buywatch/internal/telegram"
	"github.com/0xsamyy/buywatch/internal/token"
	"github.com/0xsamyy/buywatch/internal/watch"
)

func main() {
	cfg := config.MustLoad()
	logger := mustLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting buywatch", zap.String("config", cfg.RedactedSummary()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.NewBolt(cfg.DBPath)
	if err != nil {
		logger.Fatal("store open failed", zap.Error(err))
	}
	defer func() {
		if e := st.Close(); e != nil {
			logger.Warn("store close", zap.Error(e))
		}
	}()

	resolver := token.NewHTTPResolver(cfg.ResolverAPIURL, logger)
	opener := feed.NewWSOpener(cfg.FeedWSS, logger)
	registry := watch.NewRegistry()
	formatter := notify.NewFormatter(cfg.Explorers())

	bot, err := tg.New(cfg.TelegramBotToken)
	if err != nil {
		logger.Fatal("telegram init failed", zap.Error(err))
	}

	sink := telegram.NewSink(bot, logger)
	mgr := watch.NewManager(registry, resolver, opener, formatter, sink, logger)
	hlth := health.New(registry, st)
	th := telegram.New(bot, mgr, st, hlth, cfg.TelegramAdminChatID, cfg.DefaultMinUSD, cancel, logger)

	// Restore watches that were active before the last shutdown.
	if configs, err := st.ListConfigs(ctx); err != nil {
		logger.Warn("list persisted configs failed", zap.Error(err))
	} else {
		for key, c := range configs {
			if !c.Active {
				continue
			}
			if _, err := mgr.Start(ctx, key, c); err != nil {
				logger.Warn("restore watch failed", zap.String("watch", key.String()), zap.Error(err))
			}
		}
	}

	logger.Info("started; awaiting Telegram commands")
	th.Run(ctx)

	mgr.Shutdown()
	logger.Info("shutdown complete")
}

func mustLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := zc.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: logger init: %v\n", err)
		os.Exit(1)
	}
	return logger
}
