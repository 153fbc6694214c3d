package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/laschacras/cabanas-api/internal/bot"
	"github.com/laschacras/cabanas-api/internal/config"
	"github.com/laschacras/cabanas-api/internal/coordinator"
	"github.com/laschacras/cabanas-api/internal/feed"
	"github.com/laschacras/cabanas-api/internal/handlers"
	"github.com/laschacras/cabanas-api/internal/interpret"
	"github.com/laschacras/cabanas-api/internal/notifier"
	"github.com/laschacras/cabanas-api/internal/publish"
	"github.com/laschacras/cabanas-api/internal/store"
	"github.com/laschacras/cabanas-api/internal/stt"
)

func main() {
	// Load Configuration
	godotenv.Load()
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Booking store and publication surface
	st := store.New(cfg.StorePath)
	publisher := publish.New(cfg.PublishRoot, cfg.GitRemote, cfg.GitBranch, cfg.StaticMirror)
	if err := publisher.Check(ctx); err != nil {
		log.Fatalf("Publication surface is not ready: %v\n"+
			"Set PUBLISH_ROOT to a cloned git working copy with a remote and a committer identity (git config user.email).", err)
	}

	// Command interpreter
	interp, err := interpret.New(ctx, cfg.LLMAPIKey, cfg.LLMModel)
	if err != nil {
		log.Fatalf("Failed to initialize interpreter: %v", err)
	}
	defer interp.Close()

	// Optional discord mirror of booking activity
	var notif coordinator.Notifier
	if cfg.DiscordBotToken != "" && cfg.DiscordNotificationsChannelID != "" {
		discordNotifier, err := notifier.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordNotificationsChannelID)
		if err != nil {
			log.Printf("Discord notifier not initialized: %v", err)
		} else {
			notif = discordNotifier
		}
	}

	coord := coordinator.New(st, publisher, notif)
	responder := bot.NewResponder(coord, interp, cfg.ChatTimeout)

	// Telegram transport
	if cfg.ChatToken != "" {
		var transcriber bot.Transcriber
		if cfg.STTAPIKey != "" || cfg.STTURL != "" {
			transcriber = stt.New(cfg.STTURL, cfg.STTAPIKey)
		}
		b, err := bot.New(cfg.ChatToken, responder, transcriber, cfg.AllowedChatIDs, cfg.CalendarURL)
		if err != nil {
			log.Fatalf("Failed to start telegram bot: %v", err)
		}
		go func() {
			if err := b.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Telegram bot stopped: %v", err)
			}
		}()
	} else {
		log.Println("CHAT_TOKEN not set, telegram transport disabled")
	}

	// External availability feed
	if cfg.AirbnbICalURL != "" {
		go feed.NewSyncer(cfg.AirbnbICalURL, coord, cfg.AirbnbSyncInterval).Run(ctx)
	}

	// Web UI API
	reservationHandler := handlers.NewReservationHandler(coord.Snapshot, responder)
	r := chi.NewRouter()
	handlers.RegisterRoutes(r, reservationHandler, cfg.StaticMirror)

	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
