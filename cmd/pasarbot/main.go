package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/pasarbot/internal/bot"
	"github.com/iamwavecut/pasarbot/internal/config"
	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/db/mysql"
	"github.com/iamwavecut/pasarbot/internal/db/redis"
	"github.com/iamwavecut/pasarbot/internal/db/sqlite"
	"github.com/iamwavecut/pasarbot/internal/eligibility"
	"github.com/iamwavecut/pasarbot/internal/event"
	"github.com/iamwavecut/pasarbot/internal/handlers/base"
	"github.com/iamwavecut/pasarbot/internal/handlers/chat"
	"github.com/iamwavecut/pasarbot/internal/handlers/moderation"
	"github.com/iamwavecut/pasarbot/internal/httpapi"
	"github.com/iamwavecut/pasarbot/internal/infra"
	"github.com/iamwavecut/pasarbot/internal/infrastructure/discord"
	"github.com/iamwavecut/pasarbot/internal/ledger"
	"github.com/iamwavecut/pasarbot/internal/lifecycle"
	"github.com/iamwavecut/pasarbot/internal/market"
	"github.com/iamwavecut/pasarbot/internal/observability"
	"github.com/iamwavecut/pasarbot/internal/policy/permissions"
	"github.com/iamwavecut/pasarbot/internal/tiers"
	"github.com/iamwavecut/pasarbot/internal/verification"
)

const (
	dispatcherQueueSize = 256
	shutdownTimeout     = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err.Error()).Fatal("cant load config")
	}
	log.SetFormatter(&config.NbFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))
	if log.Level(cfg.LogLevel) < log.TraceLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithField("error", err.Error()).Error("exiting")
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.Config) (db.DocumentStore, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		dir, err := infra.WorkDir(cfg.DotPath)
		if err != nil {
			return nil, err
		}
		return sqlite.NewSQLiteClient(ctx, dir, cfg.Storage.SQLite)
	case "redis":
		return redis.NewRedisClient(ctx, cfg.Storage.RedisURL)
	case "mysql":
		return mysql.NewMySQLClient(ctx, cfg.Storage.MySQLDSN)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func run(ctx context.Context, cfg config.Config) error {
	audit, flush, err := observability.Init(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		_ = flush(ctx)
		return fmt.Errorf("open store: %w", err)
	}
	journal, _ := store.(db.Journal)

	// until the runtime owns them, failures release the store and flush
	handedOver := false
	defer func() {
		if !handedOver {
			_ = store.Close()
			_ = flush(context.WithoutCancel(ctx))
		}
	}()

	runtime := lifecycle.NewRuntime()
	runtime.Register("observability", lifecycle.Hooks{OnStop: flush})
	runtime.Register("store", lifecycle.Hooks{OnStop: func(context.Context) error { return store.Close() }})

	client, err := discord.New(cfg.DiscordToken, cfg.GuildID)
	if err != nil {
		return err
	}
	transcriptID, err := client.ChannelByName(ctx, cfg.Market.TranscriptChannel)
	if err != nil {
		return fmt.Errorf("resolve #%s: %w", cfg.Market.TranscriptChannel, err)
	}

	resolver := tiers.NewRoleResolver(client)
	l := ledger.New(store, observability.NewAuditJournal(audit, journal))
	l.Subscribe(tiers.NewApplier(l, store, client, resolver, cfg.Roles.Benefactor))

	dispatcher := event.NewDispatcher(dispatcherQueueSize)
	notifier := event.NewNotifier(dispatcher, client, base.DeliveryFailure(cfg.DefaultLanguage))
	runtime.Register("dispatcher", dispatcher)
	l.Subscribe(ledger.NewTranscript(notifier, l, transcriptID, cfg.DefaultLanguage))

	scheduler := verification.NewScheduler(l, store, client, notifier, verification.Config{
		Timeout:             cfg.Verification.Timeout,
		TranscriptChannelID: transcriptID,
		Language:            cfg.DefaultLanguage,
	})
	svc := market.NewService(l, store, client, scheduler, notifier, market.Config{
		Language:      cfg.DefaultLanguage,
		SweepInterval: cfg.Market.SweepInterval,
	})
	scheduler.SetRefresher(svc)
	runtime.Register("verification", scheduler)
	runtime.Register("market", svc)

	flood := eligibility.NewFloodDetector(eligibility.FloodConfig{
		Window:      cfg.SpamControl.Window,
		MaxMessages: cfg.SpamControl.MaxMessages,
		MuteBase:    cfg.SpamControl.MuteBase,
	}, nil)
	muter := eligibility.NewMuter(client, flood, cfg.Roles.Muted)
	runtime.Register("muter", muter)

	channels := base.Channels{
		Market:       cfg.Market.Channel,
		Transcript:   cfg.Market.TranscriptChannel,
		General:      cfg.Market.GeneralChannel,
		TranscriptID: transcriptID,
	}
	handler := func(name string) *base.BaseHandler {
		return base.NewBaseHandler(client, notifier, channels, cfg.DefaultLanguage, name)
	}
	processor := bot.NewUpdateProcessor(
		chat.NewRewards(handler("rewards"), l, eligibility.NewDailyReward(decimal.NewFromFloat(cfg.Market.DailyRewardBelow), nil), chat.RewardsConfig{
			WelcomeBonus: decimal.NewFromFloat(cfg.Market.WelcomeBonus),
			DailyReward:  decimal.NewFromFloat(cfg.Market.DailyReward),
			DailyBelow:   decimal.NewFromFloat(cfg.Market.DailyRewardBelow),
		}),
		moderation.NewChannelPolicy(handler("channel_policy")),
		moderation.NewFloodGuard(handler("flood_guard"), flood, muter),
		chat.NewCommands(handler("commands"), svc, l,
			eligibility.NewGiftLimiter(cfg.SpamControl.DailyGiftCap, nil),
			permissions.NewGate(client, resolver, cfg.Roles.Trusted),
			chat.CommandsConfig{
				AdjustmentCap: decimal.NewFromFloat(cfg.SpamControl.AdjustmentCap),
				GiftDailyCap:  cfg.SpamControl.DailyGiftCap,
			},
		),
		chat.NewReactions(handler("reactions"), svc, scheduler),
	)
	client.SetSink(processor.Consume)
	runtime.Register("discord", client)

	runtime.Register("httpapi", httpapi.NewServer(cfg.HTTP.Addr, httpapi.Deps{
		Balances:      l,
		Market:        svc,
		Verifications: scheduler,
		Journal:       journal,
		Registry:      observability.Registry,
	}))

	handedOver = true
	if err := runtime.Start(ctx); err != nil {
		return err
	}
	log.WithField("guild", cfg.GuildID).WithField("storage", cfg.Storage.Driver).Info("pasarbot is running")

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case <-infra.MonitorExecutable(ctx):
		log.Warn("executable file was modified, restarting")
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return runtime.Stop(stopCtx)
}
