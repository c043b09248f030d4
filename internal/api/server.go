// Package api is the HTTP side of the bot: the Telegram webhook and the REST
// endpoints used by the admin panel.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"psy-booking-bot/internal/blob"
	"psy-booking-bot/internal/booking"
	"psy-booking-bot/internal/schedule"
	"psy-booking-bot/internal/storage"
	"psy-booking-bot/internal/telegram"
)

// UpdateHandler processes one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update) error
}

type Server struct {
	Repo     storage.Repository
	Booking  *booking.Service
	Schedule *schedule.Service
	Notify   *telegram.Notifier
	Blobs    blob.Store
	Updates  UpdateHandler

	// StorageDir is served at /storage when screenshots are kept locally.
	StorageDir  string
	CORSOrigin  string
	AdminAuth   bool
	BotToken    string
	InitDataTTL time.Duration
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery(), CORS(s.CORSOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", s.ready)
	r.POST("/webhook", s.webhook)
	if s.StorageDir != "" {
		r.Static("/storage", s.StorageDir)
	}

	admin := r.Group("")
	if s.AdminAuth {
		admin.Use(AdminAuth(s.BotToken, s.InitDataTTL, s.Notify.IsAdmin))
	}

	api := admin.Group("/api")
	{
		api.GET("/clients", s.listClients)
		api.PUT("/clients/:id", s.updateClient)
		api.DELETE("/clients/:id", s.deleteClient)

		api.GET("/slots", s.listSlots)
		api.POST("/slots", s.createSlot)
		api.DELETE("/slots/:id", s.deleteSlot)

		api.GET("/bookings", s.listBookings)
		api.DELETE("/bookings/:id", s.cancelBooking)

		api.GET("/sos", s.listSos)
		api.PUT("/sos/:id", s.updateSos)

		api.GET("/payments", s.listPayments)
		api.DELETE("/payments/:id", s.deletePayment)

		api.GET("/payment-card", s.getPaymentCard)
		api.PUT("/payment-card", s.putPaymentCard)
		api.GET("/payment-settings", s.getPaymentSettings)
		api.PUT("/payment-settings", s.putPaymentSettings)

		api.GET("/schedule-template", s.getTemplate)
		api.POST("/schedule-template", s.saveTemplate)
		api.DELETE("/schedule-template", s.deleteTemplate)
		api.POST("/schedule-template/apply", s.applyTemplate)

		api.GET("/about-me", s.getAboutMe)
		api.GET("/diary", s.listDiary)
	}

	admin.POST("/book-for-client", s.bookForClient)
	admin.POST("/create-regular-bookings", s.createRegularBookings)
	admin.POST("/cancel-booking-admin", s.cancelBookingAdmin)
	admin.PUT("/about-me", s.putAboutMe)

	return r
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.Repo.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// webhook answers 200 once the update is handled so Telegram does not
// redeliver it.
func (s *Server) webhook(c *gin.Context) {
	var upd tgbotapi.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.Updates.HandleUpdate(c.Request.Context(), upd); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
