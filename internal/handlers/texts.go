package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"psy-booking-bot/internal/messages"
	"psy-booking-bot/internal/models"
)

// continueFlow feeds free text into the pending flow of the chat, if any.
func (h *Handler) continueFlow(ctx context.Context, c *chat, text string) error {
	st, err := h.States.Get(ctx, c.id)
	if err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("get chat state %d: %w", c.id, err)
	}

	switch {
	case st.Kind == models.FlowDiary && text != "":
		return h.saveDiary(ctx, c, text)
	case st.Kind == models.FlowSOS && text != "":
		return h.completeSOS(ctx, c, st, text)
	case st.Kind == models.FlowBroadcast && c.admin && text != "":
		return h.broadcast(ctx, c, text)
	}

	h.sendMainMenu(c, txtUseMenu)
	return nil
}

func (h *Handler) saveDiary(ctx context.Context, c *chat, text string) error {
	if _, err := h.Repo.CreateDiaryEntry(ctx, c.client.ID, text); err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("save diary entry: %w", err)
	}
	h.clearState(ctx, c.id)

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📖 Посмотреть записи", cbDiaryView)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnToMainMenu, cbMainMenu)),
	)
	_ = h.Notify.Send(c.id, "✅ Запись сохранена в дневник.\n\nСпасибо, что делитесь своими мыслями.", kb)
	return nil
}

func (h *Handler) completeSOS(ctx context.Context, c *chat, st models.ChatState, text string) error {
	if st.SosID != 0 {
		if err := h.Repo.SetSosText(ctx, st.SosID, text); err != nil {
			// админ всё равно получит текст ниже
			log.Error().Err(err).Int64("sos_id", st.SosID).Msg("save sos text")
		}
	}
	h.clearState(ctx, c.id)

	h.Notify.NotifyAdmins(messages.AdminSOSAddition(c.client, text))
	h.sendMainMenu(c, "✅ Сообщение отправлено психологу.")
	return nil
}

func (h *Handler) broadcast(ctx context.Context, c *chat, text string) error {
	h.clearState(ctx, c.id)

	ids, err := h.Repo.ListClientTelegramIDs(ctx)
	if err != nil {
		h.fail(c.id, err)
		return fmt.Errorf("list broadcast recipients: %w", err)
	}
	_ = h.Notify.Send(c.id, "⏳ Рассылаю сообщение...", nil)

	// the broadcast outlives the update that started it; a webhook request
	// may end before the last recipient is reached
	sent := h.Notify.Broadcast(context.WithoutCancel(ctx), ids, text)
	log.Info().Int("sent", sent).Int("total", len(ids)).Msg("broadcast done")

	h.sendMainMenu(c, fmt.Sprintf("✅ Рассылка завершена!\n\nОтправлено: %d клиентам", sent))
	return nil
}
