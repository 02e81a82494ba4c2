package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"SignalRelay/internal/config"
	"SignalRelay/internal/cooldown"
	"SignalRelay/internal/logging"
	"SignalRelay/internal/notifier"
	"SignalRelay/internal/relay"
	"SignalRelay/internal/scheduler"
	"SignalRelay/internal/server"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal("load config", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("config validation", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		fatal("init logger", err)
	}
	log.Info().Str("config", cfgPath).Msg("SignalRelay starting...")

	retention, _ := cfg.Retention()
	tgTimeout, _ := cfg.TelegramTimeout()
	shutdownTimeout, _ := cfg.ShutdownTimeout()

	// Init cooldown store
	store, err := cooldown.Open(cooldown.Options{
		Backend:   cfg.Cooldown.Backend,
		Path:      cfg.Cooldown.SQLitePath,
		Window:    cfg.CooldownWindow(),
		Retention: retention,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init cooldown store")
	}
	defer store.Close()
	log.Info().
		Str("backend", cfg.Cooldown.Backend).
		Dur("window", cfg.CooldownWindow()).
		Dur("retention", retention).
		Msg("cooldown store ready")

	loc, err := notifier.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("load timezone")
	}

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, tgTimeout)
	tn.ParseMode = cfg.Telegram.ParseMode
	if cfg.Telegram.APIURL != "" {
		tn.APIURL = cfg.Telegram.APIURL
	}
	if tn.BotToken == "" || tn.ChatID == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set; signals will fail until configured")
	}

	rl := relay.New(relay.Options{
		Store:     store,
		Gate:      &cooldown.Gate{},
		Formatter: notifier.NewFormatter(cfg.CooldownWindow(), loc, cfg.Telegram.ParseMode),
		Sender:    tn,
		Logger:    logging.Component(log, "relay"),
	})

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(ctx, store, retention, logging.Component(log, "scheduler"))
	if err := sched.Register(cfg.Cooldown.PruneCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(rl, server.Options{
		Addr:            cfg.Server.Addr,
		Path:            cfg.Server.Path,
		Environment:     cfg.Server.Environment,
		ShutdownTimeout: shutdownTimeout,
		Logger:          logging.Component(log, "http"),
	})

	log.Info().Msg("SignalRelay is running. Press Ctrl+C to stop.")
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("http server")
		return
	}
	log.Info().Msg("SignalRelay stopped")
}

// fatal reports errors raised before the logger exists.
func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "[FATAL] %s: %v\n", what, err)
	os.Exit(1)
}
