package config

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	BotToken       string
	DatabaseURL    string
	Debug          bool
	AllowedUsers   map[int64]struct{} // empty = anyone
	UnitValue      decimal.Decimal
	CurrencySymbol string
	SessionTTL     time.Duration
	NoticeTTL      time.Duration
	JanitorEvery   time.Duration
	HealthAddr     string
	MigrationsDir  string
}

// Allowed reports whether userID may use the bot.
func (c Config) Allowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	_, ok := c.AllowedUsers[userID]
	return ok
}

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func Load() (Config, error) {
	// .env is optional; real env vars win
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("UNIT_VALUE", "0.05")
	v.SetDefault("CURRENCY_SYMBOL", "$")
	v.SetDefault("SESSION_TTL", "5m")
	v.SetDefault("NOTICE_TTL", "5s")
	v.SetDefault("JANITOR_INTERVAL", "1m")
	v.SetDefault("HEALTH_ADDR", ":8080")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("BOT_DEBUG", false)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	bt := v.GetString("BOT_TOKEN")
	if bt == "" {
		return Config{}, errors.New("BOT_TOKEN is required")
	}
	dsn := v.GetString("DATABASE_URL")
	if dsn == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}

	allowed, err := ParseAllowList(v.GetString("ALLOWED_USERS"))
	if err != nil {
		return Config{}, err
	}

	unit, err := decimal.NewFromString(v.GetString("UNIT_VALUE"))
	if err != nil || !unit.IsPositive() {
		return Config{}, fmt.Errorf("UNIT_VALUE must be a positive number, got %q", v.GetString("UNIT_VALUE"))
	}
	// amounts are stored as NUMERIC(12,2)
	if !unit.Equal(unit.Truncate(2)) {
		return Config{}, fmt.Errorf("UNIT_VALUE must have at most 2 decimal places, got %q", v.GetString("UNIT_VALUE"))
	}

	cfg := Config{
		BotToken:       bt,
		DatabaseURL:    dsn,
		Debug:          v.GetBool("BOT_DEBUG"),
		AllowedUsers:   allowed,
		UnitValue:      unit,
		CurrencySymbol: v.GetString("CURRENCY_SYMBOL"),
		SessionTTL:     v.GetDuration("SESSION_TTL"),
		NoticeTTL:      v.GetDuration("NOTICE_TTL"),
		JanitorEvery:   v.GetDuration("JANITOR_INTERVAL"),
		HealthAddr:     v.GetString("HEALTH_ADDR"),
		MigrationsDir:  v.GetString("MIGRATIONS_DIR"),
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, errors.New("SESSION_TTL must be positive")
	}
	if cfg.NoticeTTL <= 0 {
		return Config{}, errors.New("NOTICE_TTL must be positive")
	}
	if cfg.JanitorEvery <= 0 {
		cfg.JanitorEvery = time.Minute
	}
	return cfg, nil
}

// ParseAllowList parses "1702020451, 468551427" into a set.
func ParseAllowList(raw string) (map[int64]struct{}, error) {
	out := make(map[int64]struct{})
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ALLOWED_USERS: bad user id %q", p)
		}
		out[id] = struct{}{}
	}
	return out, nil
}
