package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// callback data
const (
	cbMainMenu       = "main_menu"
	cbFreeSlots      = "free_slots"
	cbBookSession    = "book_session"
	cbMyBookings     = "my_bookings"
	cbDiary          = "diary"
	cbDiaryAdd       = "diary_add"
	cbDiaryView      = "diary_view"
	cbPayment        = "payment"
	cbPaymentLink    = "payment_link"
	cbPaymentErip    = "payment_erip"
	cbPaymentAccount = "payment_account"
	cbPaymentCard    = "payment_card"
	cbAboutMe        = "about_me"
	cbSOS            = "sos"
	cbAdminBroadcast = "admin_broadcast"

	cbSelectDate  = "select_date_"
	cbSelectSlot  = "select_slot_"
	cbBookOnline  = "book_online_"
	cbBookOffline = "book_offline_"
	cbCancel      = "cancel_"
)

const (
	btnMenu       = "📋 Меню"
	btnBack       = "◀️ Назад"
	btnToMainMenu = "◀️ В главное меню"
)

const defaultProjectURL = "https://liftme.by"

func (h *Handler) mainMenu(admin bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗓 Записаться на консультацию", cbBookSession),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📁 Свободные даты", cbFreeSlots),
			tgbotapi.NewInlineKeyboardButtonData("🗓 Моя запись", cbMyBookings),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📒 Дневник терапии", cbDiary),
			tgbotapi.NewInlineKeyboardButtonData("💳 Оплата", cbPayment),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👤 Обо мне", cbAboutMe),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🆘 SOS", cbSOS),
		),
	}
	if admin {
		url := h.ProjectURL
		if url == "" {
			url = defaultProjectURL
		}
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("📋 Управление расписанием", url),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📢 Рассылка", cbAdminBroadcast),
			),
		)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// menuKeyboard is the persistent reply keyboard with a single menu button.
func menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnMenu)),
	)
	kb.ResizeKeyboard = true
	return kb
}

// single builds a one-button inline keyboard.
func single(text, data string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(text, data)),
	)
}
