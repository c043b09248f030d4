package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"psy-booking-bot/internal/booking"
	"psy-booking-bot/internal/messages"
	"psy-booking-bot/internal/models"
)

const (
	freeSlotsLimit = 10
	datesLimit     = 100
)

// HandleCallback answers the query, drops any pending flow and routes by
// callback data.
func (h *Handler) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	h.Notify.Answer(cq.ID, "")
	if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil || cq.Data == "" {
		return nil
	}
	c, err := h.chat(ctx, cq.Message.Chat.ID, cq.From)
	if err != nil {
		return err
	}
	h.clearState(ctx, c.id)

	data := cq.Data
	switch data {
	case cbMainMenu:
		h.sendMainMenu(c, txtMainMenu)
		return nil
	case cbFreeSlots:
		return h.freeSlots(ctx, c)
	case cbBookSession:
		return h.bookSession(ctx, c)
	case cbMyBookings:
		return h.myBookings(ctx, c)
	case cbDiary:
		h.showDiary(c)
		return nil
	case cbDiaryAdd:
		h.diaryAdd(ctx, c)
		return nil
	case cbDiaryView:
		return h.diaryView(ctx, c)
	case cbPayment:
		return h.payment(ctx, c)
	case cbPaymentLink, cbPaymentErip, cbPaymentAccount, cbPaymentCard:
		return h.paymentMethod(ctx, c, data)
	case cbAboutMe:
		return h.aboutMe(ctx, c)
	case cbSOS:
		return h.sos(ctx, c)
	case cbAdminBroadcast:
		if c.admin {
			h.broadcastPrompt(ctx, c)
		}
		return nil
	}

	switch {
	case strings.HasPrefix(data, cbSelectDate):
		return h.selectDate(ctx, c, strings.TrimPrefix(data, cbSelectDate))
	case strings.HasPrefix(data, cbSelectSlot):
		if id, ok := parseID(data, cbSelectSlot); ok {
			return h.selectFormat(ctx, c, id)
		}
	case strings.HasPrefix(data, cbBookOnline):
		if id, ok := parseID(data, cbBookOnline); ok {
			return h.book(ctx, c, id, models.FormatOnline)
		}
	case strings.HasPrefix(data, cbBookOffline):
		if id, ok := parseID(data, cbBookOffline); ok {
			return h.book(ctx, c, id, models.FormatOffline)
		}
	case strings.HasPrefix(data, cbCancel):
		if id, ok := parseID(data, cbCancel); ok {
			return h.cancel(ctx, c, id)
		}
	}

	log.Warn().Str("data", data).Int64("chat_id", c.id).Msg("unknown callback")
	return nil
}

func parseID(data, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) freeSlots(ctx context.Context, c *chat) error {
	slots, err := h.Booking.AvailableSlots(ctx, freeSlotsLimit)
	if err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("free slots: %w", err)
	}
	back := single(btnBack, cbMainMenu)
	if len(slots) == 0 {
		_ = h.Notify.Send(c.id, "😔 К сожалению, свободных дат нет.\n\nПопробуйте позже.", back)
		return nil
	}

	var b strings.Builder
	b.WriteString("📁 <b>Свободные даты:</b>\n\n")
	for _, s := range slots {
		fmt.Fprintf(&b, "• %s в %s\n", messages.FormatDate(s.Date), messages.FormatTime(s.Time))
	}
	b.WriteString("\nДля записи нажмите \"Записаться на консультацию\"")

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🗓 Записаться на консультацию", cbBookSession)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, cbMainMenu)),
	)
	_ = h.Notify.Send(c.id, b.String(), kb)
	return nil
}

func (h *Handler) bookSession(ctx context.Context, c *chat) error {
	dates, err := h.Booking.AvailableDates(ctx, datesLimit)
	if err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("available dates: %w", err)
	}
	if len(dates) == 0 {
		_ = h.Notify.Send(c.id, "😔 К сожалению, свободных слотов нет.\n\nПопробуйте позже или свяжитесь с психологом напрямую.",
			single(btnBack, cbMainMenu))
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(dates)+1)
	for _, d := range dates {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(messages.FormatDate(d), cbSelectDate+d),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, cbMainMenu)))
	_ = h.Notify.Send(c.id, "🗓 <b>Записаться на консультацию</b>\n\nВыберите день:", tgbotapi.NewInlineKeyboardMarkup(rows...))
	return nil
}

func (h *Handler) selectDate(ctx context.Context, c *chat, date string) error {
	slots, err := h.Booking.SlotsForDate(ctx, date)
	if errors.Is(err, booking.ErrInvalidInput) {
		return h.bookSession(ctx, c)
	}
	if err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("slots for %s: %w", date, err)
	}
	otherDay := tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀️ Выбрать другой день", cbBookSession))
	if len(slots) == 0 {
		_ = h.Notify.Send(c.id, "😔 К сожалению, на этот день свободных слотов нет.\n\nВыберите другой день.",
			tgbotapi.NewInlineKeyboardMarkup(otherDay))
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(slots)+1)
	for _, s := range slots {
		label := messages.FormatTime(s.Time) + " " + messages.AvailableIcon(s.AvailableFormats)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbSelectSlot+strconv.FormatInt(s.ID, 10)),
		))
	}
	rows = append(rows, otherDay)
	text := fmt.Sprintf("🕐 <b>%s</b>\n\nВыберите время:\n\n🏠 — очно, 💻 — онлайн", messages.FormatDate(slots[0].Date))
	_ = h.Notify.Send(c.id, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
	return nil
}

// selectFormat offers the formats the slot allows.
func (h *Handler) selectFormat(ctx context.Context, c *chat, slotID int64) error {
	slot, err := h.Repo.GetSlot(ctx, slotID)
	if err != nil || slot.Status != models.SlotFree {
		h.slotTaken(c)
		return nil
	}

	id := strconv.FormatInt(slot.ID, 10)
	var buttons []tgbotapi.InlineKeyboardButton
	if slot.AvailableFormats.Allows(models.FormatOffline) {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData("🏠 Очно", cbBookOffline+id))
	}
	if slot.AvailableFormats.Allows(models.FormatOnline) {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData("💻 Онлайн", cbBookOnline+id))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(buttons...),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀️ Выбрать другой день", cbBookSession)),
	)
	_ = h.Notify.Send(c.id, "📍 <b>Выберите формат консультации:</b>", kb)
	return nil
}

func (h *Handler) book(ctx context.Context, c *chat, slotID int64, format models.Format) error {
	conf, err := h.Booking.Book(ctx, c.client.ID, slotID, format)
	switch {
	case errors.Is(err, booking.ErrSlotUnavailable), errors.Is(err, booking.ErrNotFound):
		log.Info().Err(err).Int64("slot_id", slotID).Int64("client_id", c.client.ID).Msg("booking refused")
		h.slotTaken(c)
		return nil
	case err != nil:
		h.fail(c.id, err)
		return fmt.Errorf("book slot %d: %w", slotID, err)
	}

	h.sendMainMenu(c, fmt.Sprintf("✅ <b>Вы успешно записались!</b>\n\nФормат: %s\n\nНапоминания придут за 24 часа и за 1 час до сессии.",
		messages.FormatLabel(&format)))
	h.Notify.NotifyAdmins(messages.AdminNewBooking(c.client, &conf.Slot))
	return nil
}

func (h *Handler) slotTaken(c *chat) {
	_ = h.Notify.Send(c.id, "😔 К сожалению, это время уже занято.\n\nПожалуйста, выберите другой слот.",
		single("📅 Выбрать другое время", cbBookSession))
}

func (h *Handler) myBookings(ctx context.Context, c *chat) error {
	list, err := h.Booking.UpcomingBookings(ctx, c.client.ID)
	if err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("upcoming bookings: %w", err)
	}
	if len(list) == 0 {
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🗓 Записаться на консультацию", cbBookSession)),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, cbMainMenu)),
		)
		_ = h.Notify.Send(c.id, "🗓 <b>Моя запись</b>\n\nУ вас нет предстоящих записей.\n\nХотите записаться на консультацию?", kb)
		return nil
	}

	var b strings.Builder
	b.WriteString("🗓 <b>Предстоящие записи:</b>\n\n")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list)+1)
	for _, bk := range list {
		date, tm := messages.FormatDate(bk.Date), messages.FormatTime(bk.Time)
		fmt.Fprintf(&b, "📌 %s в %s %s\n", date, tm, messages.FormatIcon(bk.Format))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("❌ Отменить %s %s", date, tm), cbCancel+strconv.FormatInt(bk.ID, 10),
		)))
	}
	b.WriteString("\n<i>Отменить запись можно не позднее чем за 24 часа до начала.</i>")
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, cbMainMenu)))

	_ = h.Notify.Send(c.id, b.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
	return nil
}

func (h *Handler) cancel(ctx context.Context, c *chat, bookingID int64) error {
	view, err := h.Booking.Cancel(ctx, bookingID, booking.ActorClient(c.client.ID))
	switch {
	case errors.Is(err, booking.ErrTooLateToCancel):
		h.sendMainMenu(c, "❌ Отменить запись можно не позднее чем за 24 часа до начала")
		return nil
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, booking.ErrBookingNotActive):
		h.sendMainMenu(c, "❌ Запись не найдена или уже отменена.")
		return nil
	case err != nil:
		h.fail(c.id, err)
		return fmt.Errorf("cancel booking %d: %w", bookingID, err)
	}

	h.sendMainMenu(c, "✅ Запись отменена.")
	h.Notify.NotifyAdmins(messages.AdminClientCanceled(c.client, view.Date, view.Time))
	return nil
}
