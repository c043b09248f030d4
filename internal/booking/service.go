// Package booking holds the slot reservation rules shared by the bot and the
// admin API.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"psy-booking-bot/internal/models"
	"psy-booking-bot/internal/storage"
)

// RegularComment marks slots booked by the admin as a weekly series.
const RegularComment = "Регулярный клиент"

const (
	defaultCancelCutoff = 24 * time.Hour
	maxRegularWeeks     = 52
)

// Store is the part of storage.Repository the service needs.
type Store interface {
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	GetSlot(ctx context.Context, id int64) (*models.Slot, error)
	GetSlotByDateTime(ctx context.Context, date, tm string) (*models.Slot, error)
	CreateSlot(ctx context.Context, date, tm string, formats models.AvailableFormats) (*models.Slot, error)
	ListFreeSlots(ctx context.Context, fromDate, fromTime string, limit int) ([]models.Slot, error)
	ListFreeSlotsForDate(ctx context.Context, date, minTime string) ([]models.Slot, error)
	BookSlot(ctx context.Context, clientID, slotID int64, format models.Format, comment *string) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID int64) (*models.BookingView, error)
	GetBooking(ctx context.Context, id int64) (*models.BookingView, error)
	GetActiveBookingBySlot(ctx context.Context, slotID int64) (*models.BookingView, error)
	ListActiveBookingsByClient(ctx context.Context, clientID int64) ([]models.BookingView, error)
}

// Actor is who asks for a cancellation. Admins bypass the cutoff; a client
// may only cancel their own bookings.
type Actor struct {
	Admin    bool
	ClientID int64
}

func ActorAdmin() Actor                 { return Actor{Admin: true} }
func ActorClient(clientID int64) Actor { return Actor{ClientID: clientID} }

// Confirmation describes a booking that went through. Client is filled on
// admin bookings, where the caller needs it to notify the client.
type Confirmation struct {
	Booking models.Booking
	Slot    models.Slot
	Client  *models.Client
}

// RegularResult is the outcome of a weekly series. Failed weeks are reported
// in Errors and do not stop the remaining ones.
type RegularResult struct {
	Client   *models.Client
	Bookings []Confirmation
	Errors   []string
}

type Service struct {
	repo         Store
	loc          *time.Location
	now          func() time.Time
	cancelCutoff time.Duration
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCancelCutoff(d time.Duration) Option {
	return func(s *Service) { s.cancelCutoff = d }
}

func NewService(repo Store, loc *time.Location, opts ...Option) *Service {
	s := &Service{repo: repo, loc: loc, now: time.Now, cancelCutoff: defaultCancelCutoff}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now is the current moment in the service's time zone.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) today() string { return s.Now().Format(models.DateLayout) }

// HoursUntil returns the hours left until the slot starts, negative once it
// has started.
func (s *Service) HoursUntil(slot models.Slot) (float64, error) {
	start, err := slot.StartsAt(s.loc)
	if err != nil {
		return 0, err
	}
	return start.Sub(s.Now()).Hours(), nil
}

// Book reserves a free future slot for a client in the requested format.
func (s *Service) Book(ctx context.Context, clientID, slotID int64, format models.Format) (*Confirmation, error) {
	if !format.Valid() {
		return nil, ErrFormatNotAllowed
	}
	slot, err := s.repo.GetSlot(ctx, slotID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if slot.Status != models.SlotFree {
		return nil, ErrSlotUnavailable
	}
	if !slot.AvailableFormats.Allows(format) {
		return nil, ErrFormatNotAllowed
	}
	start, err := slot.StartsAt(s.loc)
	if err != nil {
		return nil, err
	}
	if !start.After(s.Now()) {
		return nil, ErrSlotInPast
	}

	b, err := s.repo.BookSlot(ctx, clientID, slotID, format, nil)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	booked(slot, clientID, format)

	log.Info().Int64("booking_id", b.ID).Int64("slot_id", slotID).Int64("client_id", clientID).
		Str("format", string(format)).Msg("slot booked")
	return &Confirmation{Booking: *b, Slot: *slot}, nil
}

// Cancel cancels an active booking and frees its slot. Clients cannot cancel
// when fewer than 24 hours remain; admins can at any time.
func (s *Service) Cancel(ctx context.Context, bookingID int64, by Actor) (*models.BookingView, error) {
	v, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if !by.Admin && by.ClientID != 0 && v.ClientID != by.ClientID {
		return nil, ErrNotFound
	}
	if v.Status != models.BookingActive {
		return nil, ErrBookingNotActive
	}
	if !by.Admin {
		hours, err := s.HoursUntil(v.Slot())
		if err != nil {
			return nil, err
		}
		if hours < s.cancelCutoff.Hours() {
			return nil, ErrTooLateToCancel
		}
	}

	canceled, err := s.repo.CancelBooking(ctx, bookingID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	log.Info().Int64("booking_id", bookingID).Int64("slot_id", canceled.SlotID).Bool("admin", by.Admin).Msg("booking canceled")
	return canceled, nil
}

// CancelBySlot is the admin cancellation addressed by slot.
func (s *Service) CancelBySlot(ctx context.Context, slotID int64) (*models.BookingView, error) {
	v, err := s.repo.GetActiveBookingBySlot(ctx, slotID)
	if errors.Is(err, storage.ErrNotFound) {
		if _, err := s.repo.GetSlot(ctx, slotID); err != nil {
			return nil, mapStorageErr(err)
		}
		return nil, ErrBookingNotActive
	}
	if err != nil {
		return nil, err
	}
	return s.Cancel(ctx, v.ID, ActorAdmin())
}

// BookForClient is the admin booking: the slot is created when missing and
// any time of today is accepted. The slot's offered formats are not checked.
func (s *Service) BookForClient(ctx context.Context, clientID int64, date, tm string, format models.Format) (*Confirmation, error) {
	date, tm, err := normalize(date, tm)
	if err != nil {
		return nil, err
	}
	if !format.Valid() {
		return nil, fmt.Errorf("%w: format %q", ErrInvalidInput, format)
	}
	if date < s.today() {
		return nil, ErrSlotInPast
	}
	client, err := s.repo.GetClient(ctx, clientID)
	if err != nil {
		return nil, mapStorageErr(err)
	}

	slot, err := s.findOrCreateSlot(ctx, date, tm, models.AvailableBoth)
	if err != nil {
		return nil, err
	}
	if slot.Status != models.SlotFree {
		return nil, ErrSlotUnavailable
	}
	b, err := s.repo.BookSlot(ctx, clientID, slot.ID, format, nil)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	booked(slot, clientID, format)

	log.Info().Int64("booking_id", b.ID).Int64("slot_id", slot.ID).Int64("client_id", clientID).Msg("admin booked slot")
	return &Confirmation{Booking: *b, Slot: *slot, Client: client}, nil
}

// BookRegular books the same weekday and time for weeks consecutive weeks
// starting at date.
func (s *Service) BookRegular(ctx context.Context, clientID int64, date, tm string, format models.Format, weeks int) (*RegularResult, error) {
	date, tm, err := normalize(date, tm)
	if err != nil {
		return nil, err
	}
	if !format.Valid() {
		return nil, fmt.Errorf("%w: format %q", ErrInvalidInput, format)
	}
	if weeks < 1 || weeks > maxRegularWeeks {
		return nil, fmt.Errorf("%w: weeks must be between 1 and %d", ErrInvalidInput, maxRegularWeeks)
	}
	today := s.today()
	if date < today {
		return nil, ErrSlotInPast
	}
	client, err := s.repo.GetClient(ctx, clientID)
	if err != nil {
		return nil, mapStorageErr(err)
	}

	first, _ := time.Parse(models.DateLayout, date)
	formats := models.AvailableOffline
	if format == models.FormatOnline {
		formats = models.AvailableOnline
	}
	comment := RegularComment
	res := &RegularResult{Client: client}

	for week := 0; week < weeks; week++ {
		day := first.AddDate(0, 0, 7*week).Format(models.DateLayout)
		slot, err := s.findOrCreateSlot(ctx, day, tm, formats)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s %s - %v", day, tm, err))
			continue
		}
		if slot.Status != models.SlotFree {
			res.Errors = append(res.Errors, fmt.Sprintf("%s %s - уже занято", day, tm))
			continue
		}
		b, err := s.repo.BookSlot(ctx, clientID, slot.ID, format, &comment)
		if errors.Is(err, storage.ErrSlotTaken) {
			res.Errors = append(res.Errors, fmt.Sprintf("%s %s - уже занято", day, tm))
			continue
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s %s - %v", day, tm, err))
			continue
		}
		booked(slot, clientID, format)
		slot.Comment = &comment
		res.Bookings = append(res.Bookings, Confirmation{Booking: *b, Slot: *slot, Client: client})
	}

	log.Info().Int64("client_id", clientID).Int("created", len(res.Bookings)).Int("failed", len(res.Errors)).
		Msg("regular bookings created")
	return res, nil
}

// AvailableSlots lists free slots that have not started yet.
func (s *Service) AvailableSlots(ctx context.Context, limit int) ([]models.Slot, error) {
	now := s.Now()
	return s.repo.ListFreeSlots(ctx, now.Format(models.DateLayout), now.Format(models.TimeLayout), limit)
}

// AvailableDates returns the distinct dates of AvailableSlots in order.
func (s *Service) AvailableDates(ctx context.Context, limit int) ([]string, error) {
	slots, err := s.AvailableSlots(ctx, limit)
	if err != nil {
		return nil, err
	}
	var dates []string
	for _, sl := range slots {
		if len(dates) == 0 || dates[len(dates)-1] != sl.Date {
			dates = append(dates, sl.Date)
		}
	}
	return dates, nil
}

// SlotsForDate lists the free slots of a day that can still be booked.
func (s *Service) SlotsForDate(ctx context.Context, date string) ([]models.Slot, error) {
	date, err := models.NormalizeDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	now := s.Now()
	today := now.Format(models.DateLayout)
	switch {
	case date < today:
		return []models.Slot{}, nil
	case date == today:
		return s.repo.ListFreeSlotsForDate(ctx, date, now.Format(models.TimeLayout))
	default:
		return s.repo.ListFreeSlotsForDate(ctx, date, "")
	}
}

// UpcomingBookings returns the client's active bookings that have not
// started yet.
func (s *Service) UpcomingBookings(ctx context.Context, clientID int64) ([]models.BookingView, error) {
	all, err := s.repo.ListActiveBookingsByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	res := make([]models.BookingView, 0, len(all))
	for _, b := range all {
		sl := b.Slot()
		start, err := sl.StartsAt(s.loc)
		if err != nil {
			log.Warn().Err(err).Int64("booking_id", b.ID).Msg("skip booking with bad slot time")
			continue
		}
		if !start.Before(now) {
			res = append(res, b)
		}
	}
	return res, nil
}

func (s *Service) findOrCreateSlot(ctx context.Context, date, tm string, formats models.AvailableFormats) (*models.Slot, error) {
	slot, err := s.repo.GetSlotByDateTime(ctx, date, tm)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	slot, err = s.repo.CreateSlot(ctx, date, tm, formats)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		// created concurrently
		return s.repo.GetSlotByDateTime(ctx, date, tm)
	}
	return slot, nil
}

func booked(slot *models.Slot, clientID int64, format models.Format) {
	slot.Status = models.SlotBooked
	slot.ClientID = &clientID
	slot.Format = &format
}

func normalize(date, tm string) (string, string, error) {
	d, err := models.NormalizeDate(date)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	t, err := models.NormalizeTime(tm)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return d, t, nil
}

func mapStorageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrSlotTaken):
		return ErrSlotUnavailable
	case errors.Is(err, storage.ErrNotActive):
		return ErrBookingNotActive
	}
	return err
}
