// Package messages builds the Russian texts the bot sends outside of a
// direct reply: reminders, admin notices and notices to clients about
// changes made from the admin panel.
package messages

import (
	"fmt"

	"psy-booking-bot/internal/models"
)

const (
	dearClient = "Уважаемый клиент"
	noUsername = "нет username"
	someone    = "Пользователь"
)

const GenericError = "❌ Произошла ошибка. Попробуйте позже."

// Reminder is sent ahead of a booked consultation.
func Reminder(kind models.ReminderKind, firstName *string, date, tm string) string {
	when := "завтра"
	if kind == models.Reminder1h {
		when = "через 1 час"
	}
	return fmt.Sprintf("⏰ <b>Напоминание</b>\n\n%s, %s у вас консультация!\n\n📅 %s в %s\n\nДо встречи! 🙌",
		addressee(firstName), when, FormatDate(date), FormatTime(tm))
}

func addressee(first *string) string { return firstName(first, dearClient) }

func AdminNewClient(c *models.Client) string {
	return fmt.Sprintf("🎉 <b>Новый пользователь!</b>\n👤 username: %s\n✨ Имя: %s",
		username(c.Username, noUsername), firstName(c.FirstName, someone))
}

func AdminNewBooking(c *models.Client, s *models.Slot) string {
	return fmt.Sprintf("📅 <b>Новая запись!</b>\n\nКлиент: %s %s\n🆔 id: %d\n\n📆 %s в %s\n%s",
		firstName(c.FirstName, someone), username(c.Username, ""), c.TelegramID,
		FormatDate(s.Date), FormatTime(s.Time), FormatLabel(s.Format))
}

func AdminClientCanceled(c *models.Client, date, tm string) string {
	return fmt.Sprintf("❌ <b>Клиент отменил запись</b>\n\nКлиент: %s %s\n🆔 id: %d\n\n📆 %s в %s",
		firstName(c.FirstName, someone), username(c.Username, ""), c.TelegramID,
		FormatDate(date), FormatTime(tm))
}

func AdminSOS(c *models.Client) string {
	return fmt.Sprintf("⚠️ <b>SOS-сигнал</b>\n\nПользователь нажал кнопку SOS.\n\n🆔 id: %d\n👤 username: %s\n📛 Имя: %s\n\nВы можете ответить пользователю напрямую в Telegram.",
		c.TelegramID, username(c.Username, noUsername), firstName(c.FirstName, someone))
}

func AdminSOSAddition(c *models.Client, text string) string {
	return fmt.Sprintf("📝 <b>Дополнение к SOS</b>\n\nОт: %s (%s)\n🆔 id: %d\n\nСообщение:\n%s",
		firstName(c.FirstName, someone), username(c.Username, noUsername), c.TelegramID, Esc(text))
}

func AdminPayment(c *models.Client) string {
	return fmt.Sprintf("💳 <b>Новый скриншот оплаты</b>\n\nОт: %s %s\n🆔 id: %d",
		firstName(c.FirstName, someone), username(c.Username, ""), c.TelegramID)
}

func AdminRegular(c *models.Client, date, tm string, f models.Format, weeks, created int) string {
	return fmt.Sprintf("📅 <b>Назначены регулярные консультации!</b>\n\nКлиент: %s %s\n🆔 id: %d\n\n📆 Начиная с %s в %s\n%s\nВсего: %d %s\nСоздано: %d",
		firstName(c.FirstName, someone), username(c.Username, ""), c.TelegramID,
		FormatDate(date), FormatTime(tm), FormatLabel(&f), weeks, Consultations(weeks), created)
}

// CanceledByAdmin tells a client their consultation was removed.
func CanceledByAdmin(firstName *string, date, tm string) string {
	return fmt.Sprintf("❌ <b>Запись отменена</b>\n\n%s, к сожалению, ваша консультация на %s в %s была отменена.\n\nПожалуйста, выберите другое удобное время для записи.",
		addressee(firstName), FormatDate(date), FormatTime(tm))
}

func Assigned(s *models.Slot) string {
	return fmt.Sprintf("📅 <b>Вам назначена консультация!</b>\n\n📆 %s в %s\n%s\n\nНапоминания придут за 24 часа и за 1 час до сессии.",
		FormatDate(s.Date), FormatTime(s.Time), FormatLabel(s.Format))
}

func AssignedRegular(first *models.Slot, created int) string {
	return fmt.Sprintf("✅ <b>Вам назначена регулярная консультация!</b>\n\n📅 Первая консультация: %s в %s\n%s\n\nВсего назначено: %d %s\n\nНапоминания придут за 24 часа и за 1 час до каждой сессии.",
		FormatDate(first.Date), FormatTime(first.Time), FormatLabel(first.Format), created, Consultations(created))
}
