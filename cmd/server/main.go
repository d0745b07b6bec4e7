package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"refsync/impl/auth"
	"refsync/impl/core"
	"refsync/internal/config"
	"refsync/internal/database"
	"refsync/internal/http-server/api"
	"refsync/internal/stripehandler"
	"refsync/internal/watcher"
	"refsync/lib/logger"
	"refsync/lib/sl"
)

const logFileName = "refsync.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	logg := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	if conf.Telegram.Enabled {
		tgHandler, err := logger.NewTelegramHandler(logg.Handler(), conf.Telegram.ApiKey, conf.Telegram.ChatId, slog.LevelError)
		if err != nil {
			logg.Error("telegram alerts disabled", sl.Err(err))
		} else {
			logg = slog.New(tgHandler)
		}
	}
	logg.Info("starting refsync", slog.String("config", *configPath), slog.String("env", conf.Env))

	mongo := database.NewMongoClient(conf)
	if mongo == nil {
		log.Fatal("mongo connection is not configured")
	}

	handler := core.New(mongo, logg, conf.Reward.BasePrice)
	handler.SetAuthService(auth.New(mongo))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	verifier, err := watcher.New(handler, logg, conf.Watcher.IntervalSeconds)
	if err != nil {
		logg.Error("init verification watcher", sl.Err(err))
	} else {
		if err = verifier.Start(ctx); err != nil {
			logg.Error("start verification watcher", sl.Err(err))
		}
		defer verifier.Stop()
	}

	var webhook *stripehandler.Handler
	if conf.Stripe.Enabled {
		webhook = stripehandler.New(handler, conf.Stripe.WebhookSecret, logg)
	}

	err = api.New(conf, logg, handler, webhook)
	if err != nil {
		logg.Error("server stopped", sl.Err(err))
	}
}
