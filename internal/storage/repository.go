package storage

import (
	"context"

	"psy-booking-bot/internal/models"
)

// Repository is the persistence port used by the bot, the admin API and the
// background jobs.
type Repository interface {
	Ping(ctx context.Context) error

	// clients
	UpsertClient(ctx context.Context, c *models.Client) (*models.Client, bool, error)
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	GetClientByTelegramID(ctx context.Context, telegramID int64) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.ClientSummary, error)
	UpdateClientName(ctx context.Context, id int64, firstName, lastName *string) error
	DeleteClient(ctx context.Context, id int64) ([]models.BookingView, error)
	ListClientTelegramIDs(ctx context.Context) ([]int64, error)

	// slots
	CreateSlot(ctx context.Context, date, tm string, formats models.AvailableFormats) (*models.Slot, error)
	GetSlot(ctx context.Context, id int64) (*models.Slot, error)
	GetSlotByDateTime(ctx context.Context, date, tm string) (*models.Slot, error)
	ListFreeSlots(ctx context.Context, fromDate, fromTime string, limit int) ([]models.Slot, error)
	ListFreeSlotsForDate(ctx context.Context, date, minTime string) ([]models.Slot, error)
	ListSlotsFrom(ctx context.Context, date string) ([]models.SlotView, error)
	ListSlotsBetween(ctx context.Context, from, to string) ([]models.Slot, error)
	UpdateFreeSlotFormats(ctx context.Context, id int64, formats models.AvailableFormats) (bool, error)
	DeleteSlot(ctx context.Context, id int64) error

	// bookings
	BookSlot(ctx context.Context, clientID, slotID int64, format models.Format, comment *string) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID int64) (*models.BookingView, error)
	GetBooking(ctx context.Context, id int64) (*models.BookingView, error)
	GetActiveBookingBySlot(ctx context.Context, slotID int64) (*models.BookingView, error)
	ListActiveBookingsByClient(ctx context.Context, clientID int64) ([]models.BookingView, error)
	ListActiveBookings(ctx context.Context) ([]models.BookingView, error)
	ListBookings(ctx context.Context, status models.BookingStatus) ([]models.BookingView, error)
	MarkReminderSent(ctx context.Context, bookingID int64, kind models.ReminderKind) (bool, error)
	CompletePastBookings(ctx context.Context, date, tm string) (int64, error)

	// diary
	CreateDiaryEntry(ctx context.Context, clientID int64, text string) (*models.DiaryEntry, error)
	ListDiaryEntries(ctx context.Context, clientID int64, limit int) ([]models.DiaryEntry, error)
	ListRecentDiary(ctx context.Context, limit int) ([]models.DiaryView, error)

	// sos
	CreateSosRequest(ctx context.Context, clientID int64, text string) (*models.SosRequest, error)
	SetSosText(ctx context.Context, id int64, text string) error
	ListSosRequests(ctx context.Context, status models.SosStatus) ([]models.SosView, error)
	SetSosStatus(ctx context.Context, id int64, status models.SosStatus) error
	DeleteSosBefore(ctx context.Context, before int64) (int64, error)

	// payments
	CreatePayment(ctx context.Context, clientID int64, url, key string) (*models.Payment, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	ListPayments(ctx context.Context) ([]models.PaymentView, error)
	ListPaymentsBefore(ctx context.Context, before int64) ([]models.Payment, error)
	DeletePayment(ctx context.Context, id int64) error

	// settings
	GetSetting(ctx context.Context, key string, dst any) (bool, error)
	SetSetting(ctx context.Context, key string, value any) error
	DeleteSetting(ctx context.Context, key string) error

	// conversation state
	GetChatState(ctx context.Context, chatID int64) (models.ChatState, error)
	SetChatState(ctx context.Context, chatID int64, st models.ChatState) error
	ClearChatState(ctx context.Context, chatID int64) error
}
