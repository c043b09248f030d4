package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"psy-booking-bot/internal/apperrors"
	"psy-booking-bot/internal/booking"
	"psy-booking-bot/internal/messages"
	"psy-booking-bot/internal/models"
)

// listSlots returns slots from ?from= (today by default) with their clients.
func (s *Server) listSlots(c *gin.Context) {
	from := c.Query("from")
	if from == "" {
		from = s.Booking.Now().Format(models.DateLayout)
	} else {
		d, err := models.NormalizeDate(from)
		if err != nil {
			respondError(c, apperrors.BadRequest("invalid from date"))
			return
		}
		from = d
	}
	list, err := s.Repo.ListSlotsFrom(c.Request.Context(), from)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	c.JSON(http.StatusOK, list)
}

type createSlotRequest struct {
	Date             string                  `json:"date"              binding:"required"`
	Time             string                  `json:"time"              binding:"required"`
	AvailableFormats models.AvailableFormats `json:"available_formats"`
}

// createSlot is idempotent: an existing slot at the same date and time is
// returned as is.
func (s *Server) createSlot(c *gin.Context) {
	var req createSlotRequest
	if err := bind(c, &req); err != nil {
		respondError(c, err)
		return
	}
	date, err := models.NormalizeDate(req.Date)
	if err != nil {
		respondError(c, apperrors.BadRequest("invalid date"))
		return
	}
	tm, err := models.NormalizeTime(req.Time)
	if err != nil {
		respondError(c, apperrors.BadRequest("invalid time"))
		return
	}
	formats := req.AvailableFormats
	if formats == "" {
		formats = models.AvailableBoth
	}
	if !formats.Valid() {
		respondError(c, apperrors.BadRequest("available_formats must be offline, online or both"))
		return
	}

	ctx := c.Request.Context()
	slot, err := s.Repo.CreateSlot(ctx, date, tm, formats)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	if slot == nil {
		if slot, err = s.Repo.GetSlotByDateTime(ctx, date, tm); err != nil {
			respondError(c, domainErr(err))
			return
		}
	}
	c.JSON(http.StatusOK, slot)
}

// deleteSlot removes a slot. A booked one is canceled first and its client
// is told about it.
func (s *Server) deleteSlot(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	slot, err := s.Repo.GetSlot(ctx, id)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	if slot.Status == models.SlotBooked {
		v, err := s.Booking.CancelBySlot(ctx, id)
		switch {
		case err == nil:
			s.notifyCanceled(v)
		case errors.Is(err, booking.ErrBookingNotActive):
		default:
			respondError(c, domainErr(err))
			return
		}
	}
	if err := s.Repo.DeleteSlot(ctx, id); err != nil {
		respondError(c, domainErr(err))
		return
	}
	ok(c)
}

// listBookings filters by ?status=. Bookings whose slot has started are
// moved to completed by the scheduler and drop out of the active list.
func (s *Server) listBookings(c *gin.Context) {
	status := models.BookingStatus(c.Query("status"))
	switch status {
	case "", models.BookingActive, models.BookingCanceled, models.BookingCompleted:
	default:
		respondError(c, apperrors.BadRequest("status must be active, canceled or completed"))
		return
	}
	list, err := s.Repo.ListBookings(c.Request.Context(), status)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) cancelBooking(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	v, err := s.Booking.Cancel(c.Request.Context(), id, booking.ActorAdmin())
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	s.notifyCanceled(v)
	ok(c)
}

type bookForClientRequest struct {
	ClientID int64         `json:"clientId" binding:"required"`
	Date     string        `json:"date"     binding:"required"`
	Time     string        `json:"time"     binding:"required"`
	Format   models.Format `json:"format"`
}

func (s *Server) bookForClient(c *gin.Context) {
	var req bookForClientRequest
	if err := bind(c, &req); err != nil {
		respondError(c, err)
		return
	}
	if req.Format == "" {
		req.Format = models.FormatOffline
	}
	conf, err := s.Booking.BookForClient(c.Request.Context(), req.ClientID, req.Date, req.Time, req.Format)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	_ = s.Notify.Send(conf.Client.TelegramID, messages.Assigned(&conf.Slot), nil)
	ok(c)
}

type regularRequest struct {
	ClientID int64         `json:"clientId" binding:"required"`
	Date     string        `json:"date"     binding:"required"`
	Time     string        `json:"time"     binding:"required"`
	Weeks    int           `json:"weeks"`
	Format   models.Format `json:"format"`
}

func (s *Server) createRegularBookings(c *gin.Context) {
	var req regularRequest
	if err := bind(c, &req); err != nil {
		respondError(c, err)
		return
	}
	if req.Weeks == 0 {
		req.Weeks = 4
	}
	if req.Format == "" {
		req.Format = models.FormatOffline
	}

	res, err := s.Booking.BookRegular(c.Request.Context(), req.ClientID, req.Date, req.Time, req.Format, req.Weeks)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	created := len(res.Bookings)
	if created == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Не удалось создать ни одной консультации",
			"errors": res.Errors,
		})
		return
	}

	first := res.Bookings[0].Slot
	_ = s.Notify.Send(res.Client.TelegramID, messages.AssignedRegular(&first, created), nil)
	s.Notify.NotifyAdmins(messages.AdminRegular(res.Client, first.Date, first.Time, req.Format, req.Weeks, created))

	body := gin.H{"success": true, "created": created}
	if len(res.Errors) > 0 {
		body["errors"] = res.Errors
	}
	c.JSON(http.StatusOK, body)
}

type cancelBySlotRequest struct {
	SlotID int64 `json:"slotId" binding:"required"`
}

func (s *Server) cancelBookingAdmin(c *gin.Context) {
	var req cancelBySlotRequest
	if err := bind(c, &req); err != nil {
		respondError(c, err)
		return
	}
	v, err := s.Booking.CancelBySlot(c.Request.Context(), req.SlotID)
	if err != nil {
		respondError(c, domainErr(err))
		return
	}
	s.notifyCanceled(v)
	ok(c)
}

func (s *Server) notifyCanceled(v *models.BookingView) {
	if v == nil || v.TelegramID == 0 {
		return
	}
	if err := s.Notify.Send(v.TelegramID, messages.CanceledByAdmin(v.FirstName, v.Date, v.Time), nil); err != nil {
		log.Warn().Err(err).Int64("booking_id", v.ID).Msg("cancel notice not delivered")
	}
}
