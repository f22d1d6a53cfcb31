package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/swearjar/swearjar-bot/internal/bot"
	"github.com/swearjar/swearjar-bot/internal/config"
	"github.com/swearjar/swearjar-bot/internal/db"
	"github.com/swearjar/swearjar-bot/internal/health"
	"github.com/swearjar/swearjar-bot/internal/jar"
	"github.com/swearjar/swearjar-bot/internal/repo"
	"github.com/swearjar/swearjar-bot/internal/session"
)

func main() {
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := db.MustConnect(ctx, cfg.DatabaseURL)
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("bot init: %v", err)
	}
	botAPI.Debug = cfg.Debug

	sessions := session.NewStore(cfg.SessionTTL)
	svc := jar.New(cfg, repo.NewBalances(pool), repo.NewPending(pool), sessions)

	h := bot.NewHandler(botAPI, cfg, svc)
	defer h.Close()

	go h.RunSessionJanitor(ctx, cfg.JanitorEvery)

	if cfg.HealthAddr != "" {
		srv := &http.Server{Addr: cfg.HealthAddr, Handler: health.NewRouter(pool)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("health server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botAPI.GetUpdatesChan(u)

	log.Printf("Swear Jar bot started as @%s", botAPI.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			log.Println("shutdown")
			return
		case upd := <-updates:
			h.HandleUpdate(ctx, upd)
		}
	}
}
