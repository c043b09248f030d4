package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"psy-booking-bot/internal/blob"
	"psy-booking-bot/internal/messages"
	"psy-booking-bot/internal/models"
)

const (
	diaryPreviewEntries = 5
	diaryPreviewRunes   = 100
	afterPayment        = "После оплаты пришлите скриншот в этот чат."
)

// --- дневник ---

func (h *Handler) showDiary(c *chat) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➕ Добавить запись", cbDiaryAdd)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📖 Посмотреть записи", cbDiaryView)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, cbMainMenu)),
	)
	_ = h.Notify.Send(c.id, "📒 <b>Дневник терапии</b>\n\nЗдесь вы можете записывать свои мысли, переживания или то, что вас беспокоит. Это останется между нами.", kb)
}

func (h *Handler) diaryAdd(ctx context.Context, c *chat) {
	_ = h.Notify.Send(c.id, "📝 <b>Новая запись</b>\n\nНапишите свои мысли, переживания или то, что вас беспокоит.\n\n<i>Отправьте текст в следующем сообщении.</i>",
		single("◀️ Отмена", cbDiary))
	h.setState(ctx, c.id, models.DiaryState(c.client.ID))
}

func (h *Handler) diaryView(ctx context.Context, c *chat) error {
	entries, err := h.Repo.ListDiaryEntries(ctx, c.client.ID, diaryPreviewEntries)
	if err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("list diary: %w", err)
	}

	text := "📖 <b>Ваши записи:</b>\n\n"
	if len(entries) == 0 {
		text += "У вас пока нет записей в дневнике."
	}
	loc := h.Booking.Location()
	for _, e := range entries {
		day := messages.FormatDay(time.Unix(e.CreatedAt, 0).In(loc))
		text += fmt.Sprintf("📝 <b>%s:</b>\n%s\n\n", day, messages.Esc(messages.Preview(e.Text, diaryPreviewRunes)))
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➕ Добавить запись", cbDiaryAdd)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, cbDiary)),
	)
	_ = h.Notify.Send(c.id, strings.TrimRight(text, "\n"), kb)
	return nil
}

// --- SOS ---

func (h *Handler) sos(ctx context.Context, c *chat) error {
	req, err := h.Repo.CreateSosRequest(ctx, c.client.ID, "")
	if err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("create sos: %w", err)
	}
	log.Warn().Int64("client_id", c.client.ID).Int64("sos_id", req.ID).Msg("sos request")

	h.Notify.NotifyAdmins(messages.AdminSOS(c.client))
	_ = h.Notify.Send(c.id, "🆘 <b>SOS-связь с психологом.</b>\n\nЯ передал ваше обращение!", single(btnToMainMenu, cbMainMenu))
	h.setState(ctx, c.id, models.SOSState(c.client.ID, req.ID))
	return nil
}

// --- рассылка ---

func (h *Handler) broadcastPrompt(ctx context.Context, c *chat) {
	_ = h.Notify.Send(c.id, "📢 <b>Рассылка</b>\n\nОтправьте сообщение, которое хотите разослать всем клиентам.\n\n<i>Для отмены отправьте /cancel</i>",
		single("❌ Отмена", cbMainMenu))
	h.setState(ctx, c.id, models.BroadcastState())
}

// --- обо мне ---

func (h *Handler) aboutMe(ctx context.Context, c *chat) error {
	var text models.TextSetting
	var photo models.PhotoSetting
	if _, err := h.Repo.GetSetting(ctx, models.SettingAboutMeText, &text); err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("about me text: %w", err)
	}
	if _, err := h.Repo.GetSetting(ctx, models.SettingAboutMePhoto, &photo); err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("about me photo: %w", err)
	}

	back := single(btnBack, cbMainMenu)
	switch {
	case text.Value == "" && photo.PhotoURL == "":
		_ = h.Notify.Send(c.id, "ℹ️ Информация \"Обо мне\" пока не заполнена.", back)
	case photo.PhotoURL != "":
		_ = h.Notify.SendPhoto(c.id, photo.PhotoURL, text.Value, back)
	default:
		_ = h.Notify.Send(c.id, "👤 <b>Обо мне</b>\n\n"+text.Value, back)
	}
	return nil
}

// --- оплата ---

type paymentSettings struct {
	link, erip, account, card string
}

func (h *Handler) loadPayment(ctx context.Context) (paymentSettings, error) {
	var p paymentSettings
	for key, dst := range map[string]*string{
		models.SettingPaymentLink:   &p.link,
		models.SettingEripPath:      &p.erip,
		models.SettingAccountNumber: &p.account,
	} {
		var v models.TextSetting
		if _, err := h.Repo.GetSetting(ctx, key, &v); err != nil {
			return p, err
		}
		*dst = strings.TrimSpace(v.Value)
	}
	var card models.CardSetting
	if _, err := h.Repo.GetSetting(ctx, models.SettingPaymentCard, &card); err != nil {
		return p, err
	}
	p.card = strings.TrimSpace(card.CardNumber)
	return p, nil
}

func (h *Handler) payment(ctx context.Context, c *chat) error {
	p, err := h.loadPayment(ctx)
	if err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("payment settings: %w", err)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	add := func(value, text, data string) {
		if value != "" {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(text, data)))
		}
	}
	add(p.link, "🔗 Ссылка на оплату", cbPaymentLink)
	add(p.erip, "📱 Путь ЕРИП", cbPaymentErip)
	add(p.account, "🏦 Номер счёта", cbPaymentAccount)
	add(p.card, "💳 Номер карты", cbPaymentCard)

	if len(rows) == 0 {
		_ = h.Notify.Send(c.id, "💳 <b>Способы оплаты</b>\n\nСпособы оплаты пока не настроены.", single(btnBack, cbMainMenu))
		return nil
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, cbMainMenu)))
	_ = h.Notify.Send(c.id, "💳 <b>Выберите способ оплаты:</b>", tgbotapi.NewInlineKeyboardMarkup(rows...))
	h.setState(ctx, c.id, models.PaymentState(c.client.ID))
	return nil
}

func (h *Handler) paymentMethod(ctx context.Context, c *chat, method string) error {
	p, err := h.loadPayment(ctx)
	if err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("payment settings: %w", err)
	}

	back := single("◀️ К способам оплаты", cbPayment)
	var text, missing string
	var kb any = back

	switch method {
	case cbPaymentLink:
		if p.link == "" {
			missing = "❌ Ссылка на оплату не настроена."
			break
		}
		link := messages.Esc(p.link)
		text = fmt.Sprintf("🔗 <b>Ссылка на оплату:</b>\n\n<a href=\"%s\">%s</a>\n\n%s", link, link, afterPayment)
		kb = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🔗 Перейти к оплате", p.link)),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀️ К способам оплаты", cbPayment)),
		)
	case cbPaymentErip:
		if p.erip == "" {
			missing = "❌ Путь ЕРИП не настроен."
			break
		}
		var b strings.Builder
		b.WriteString("📱 <b>Путь ЕРИП:</b>\n\n")
		for _, line := range strings.Split(p.erip, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				fmt.Fprintf(&b, "<code>%s</code>\n", messages.Esc(line))
			}
		}
		b.WriteString("\n" + afterPayment)
		text = b.String()
	case cbPaymentAccount:
		if p.account == "" {
			missing = "❌ Номер счёта не настроен."
			break
		}
		text = fmt.Sprintf("🏦 <b>Номер счёта:</b>\n\n<code>%s</code>\n\n%s", messages.Esc(p.account), afterPayment)
	case cbPaymentCard:
		if p.card == "" {
			missing = "❌ Номер карты не настроен."
			break
		}
		text = fmt.Sprintf("💳 <b>Номер карты:</b>\n\n<code>%s</code>\n\n%s", messages.Esc(p.card), afterPayment)
	}

	if missing != "" {
		_ = h.Notify.Send(c.id, missing, single(btnBack, cbPayment))
		return nil
	}
	_ = h.Notify.Send(c.id, text, kb)
	h.setState(ctx, c.id, models.PaymentState(c.client.ID))
	return nil
}

// handlePhoto stores a payment screenshot. Photos outside the payment flow
// get the usual menu prompt.
func (h *Handler) handlePhoto(ctx context.Context, c *chat, sizes []tgbotapi.PhotoSize) error {
	st, err := h.States.Get(ctx, c.id)
	if err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("get chat state %d: %w", c.id, err)
	}
	if st.Kind != models.FlowPayment {
		h.sendMainMenu(c, txtUseMenu)
		return nil
	}

	back := single(btnBack, cbMainMenu)
	largest := sizes[len(sizes)-1]

	body, link, err := h.Notify.Download(ctx, largest.FileID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", c.id).Msg("download screenshot")
		_ = h.Notify.Send(c.id, "❌ Не удалось получить файл. Попробуйте ещё раз.", back)
		return nil
	}
	defer body.Close()

	url, key, err := h.Blobs.Save(ctx, blob.FolderPayments, blob.NewName(blob.Ext(link)), body)
	if err == nil {
		_, err = h.Repo.CreatePayment(ctx, c.client.ID, url, key)
		if err != nil {
			_ = h.Blobs.Delete(ctx, key)
		}
	}
	if err != nil {
		log.Error().Err(err).Int64("chat_id", c.id).Msg("save screenshot")
		_ = h.Notify.Send(c.id, "❌ Ошибка сохранения скриншота. Попробуйте ещё раз.", back)
		return nil
	}

	h.clearState(ctx, c.id)
	h.sendMainMenu(c, "✅ Скриншот оплаты получен. Спасибо!")
	h.Notify.NotifyAdmins(messages.AdminPayment(c.client))
	return nil
}
