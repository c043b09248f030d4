package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"psy-booking-bot/internal/api"
	"psy-booking-bot/internal/blob"
	"psy-booking-bot/internal/booking"
	"psy-booking-bot/internal/config"
	"psy-booking-bot/internal/handlers"
	"psy-booking-bot/internal/logger"
	"psy-booking-bot/internal/schedule"
	"psy-booking-bot/internal/scheduler"
	"psy-booking-bot/internal/state"
	"psy-booking-bot/internal/storage"
	"psy-booking-bot/internal/telegram"
	"psy-booking-bot/internal/utils"
)

func main() {
	cfg, err := config.Load()
	utils.Must(err, "load config")
	logger.Init("psy-booking-bot", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.Database.Driver, cfg.Database.URL)
	utils.Must(err, "open database")
	defer db.Close()

	states := newStateStore(ctx, cfg, db)
	blobs, storageDir := newBlobStore(cfg)

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	utils.Must(err, "connect to telegram")
	bot.Debug = cfg.Debug
	log.Info().Str("bot", bot.Self.UserName).Str("mode", cfg.Telegram.Mode).Msg("authorized")

	loc := cfg.Location()
	notify := telegram.NewNotifier(bot, cfg.Telegram.AdminIDs, cfg.Jobs.BroadcastDelay)
	bookings := booking.NewService(db, loc)

	h := &handlers.Handler{
		Repo:       db,
		States:     states,
		Booking:    bookings,
		Notify:     notify,
		Blobs:      blobs,
		ProjectURL: cfg.Telegram.ProjectURL,
	}

	jobs, err := scheduler.Start(ctx, scheduler.Deps{
		Reminders: &scheduler.Reminders{Repo: db, Notify: notify, Loc: loc, Window: cfg.Jobs.ReminderWindow},
		Cleanup:   &scheduler.Cleanup{Repo: db, Blobs: blobs, Retention: cfg.Retention()},
		Interval:  cfg.Jobs.ReminderInterval,
		Location:  loc,
	})
	utils.Must(err, "start scheduler")

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &api.Server{
		Repo:        db,
		Booking:     bookings,
		Schedule:    schedule.NewService(db, loc, nil),
		Notify:      notify,
		Blobs:       blobs,
		Updates:     h,
		StorageDir:  storageDir,
		CORSOrigin:  cfg.Server.CORSOrigin,
		AdminAuth:   cfg.Server.AdminAuth,
		BotToken:    cfg.Telegram.Token,
		InitDataTTL: cfg.Server.InitDataTTL,
	}
	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("http server started")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	if cfg.Telegram.Mode == config.ModePolling {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Warn().Err(err).Msg("delete webhook")
		}
		go handlers.Poll(ctx, bot, h)
	} else if cfg.Telegram.WebhookURL != "" {
		setWebhook(bot, cfg.Telegram.WebhookURL)
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := jobs.Shutdown(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown")
	}
}

func newStateStore(ctx context.Context, cfg *config.Config, db *storage.DB) state.Store {
	if cfg.State.Backend != "redis" {
		return state.NewSQLStore(db)
	}
	rdb, err := state.OpenRedis(ctx, cfg.State.RedisAddr, cfg.State.RedisPassword, cfg.State.RedisDB)
	utils.Must(err, "connect to redis")
	return state.NewRedisStore(rdb, cfg.State.TTL)
}

// newBlobStore also returns the directory to serve at /storage, empty for
// remote backends.
func newBlobStore(cfg *config.Config) (blob.Store, string) {
	if cfg.Storage.Backend == blob.BackendCloudinary {
		c, err := blob.NewCloudinary(cfg.Storage.CloudName, cfg.Storage.CloudAPIKey, cfg.Storage.CloudAPISecret, cfg.Storage.CloudinaryFolder)
		utils.Must(err, "init cloudinary")
		return c, ""
	}
	l, err := blob.NewLocal(cfg.Storage.Dir, cfg.Storage.PublicURL)
	utils.Must(err, "init local storage")
	return l, l.Dir()
}

func setWebhook(bot *tgbotapi.BotAPI, base string) {
	wh, err := tgbotapi.NewWebhook(strings.TrimRight(base, "/") + "/webhook")
	if err != nil {
		log.Error().Err(err).Msg("bad WEBHOOK_URL")
		return
	}
	if _, err := bot.Request(wh); err != nil {
		log.Error().Err(err).Msg("set webhook")
		return
	}
	log.Info().Str("url", wh.URL.String()).Msg("webhook set")
}
