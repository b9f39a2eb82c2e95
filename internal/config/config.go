package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		DiscordToken    string `env:"TOKEN,required"`
		GuildID         string `env:"GUILD_ID"`
		DefaultLanguage string `env:"LANG,default=id"`
		LogLevel        int    `env:"LOG_LEVEL,default=4"`
		DotPath         string `env:"DOT_PATH,default=~/.pasarbot"`
		Storage         Storage
		Market          Market
		Verification    Verification
		SpamControl     SpamControl
		Roles           Roles
		HTTP            HTTP
	}

	Storage struct {
		Driver   string `env:"STORAGE_DRIVER,default=sqlite"`
		SQLite   string `env:"SQLITE_FILE,default=pasar.db"`
		RedisURL string `env:"REDIS_URL"`
		MySQLDSN string `env:"MYSQL_DSN"`
	}

	Market struct {
		Channel           string        `env:"MARKET_CHANNEL,default=jual-beli"`
		TranscriptChannel string        `env:"TRANSCRIPT_CHANNEL,default=bukti-transaksi"`
		GeneralChannel    string        `env:"GENERAL_CHANNEL,default=general"`
		SweepInterval     time.Duration `env:"SWEEP_INTERVAL,default=1h"`
		WelcomeBonus      float64       `env:"WELCOME_BONUS,default=10"`
		DailyReward       float64       `env:"DAILY_REWARD,default=2"`
		DailyRewardBelow  float64       `env:"DAILY_REWARD_BELOW,default=5"`
	}

	Verification struct {
		Timeout time.Duration `env:"VERIFICATION_TIMEOUT,default=15m"`
	}

	SpamControl struct {
		Window        time.Duration `env:"SPAM_WINDOW,default=60s"`
		MaxMessages   int           `env:"SPAM_MAX_MESSAGES,default=7"`
		MuteBase      time.Duration `env:"SPAM_MUTE_BASE,default=20m"`
		DailyGiftCap  int           `env:"GIFT_DAILY_CAP,default=3"`
		AdjustmentCap float64       `env:"ADJUSTMENT_CAP,default=20"`
	}

	Roles struct {
		Muted      string `env:"ROLE_MUTED,default=🔇 Muted"`
		Trusted    string `env:"ROLE_TRUSTED,default=🛡️ Peacekeeper"`
		Benefactor string `env:"ROLE_BENEFACTOR,default=Dermawan"`
	}

	HTTP struct {
		Addr string `env:"HTTP_ADDR,default=:2112"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// LoadFrom processes the PB_ prefixed variables served by lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper("PB_", lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath
	return cfg, nil
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
