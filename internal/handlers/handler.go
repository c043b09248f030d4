package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"psy-booking-bot/internal/blob"
	"psy-booking-bot/internal/booking"
	"psy-booking-bot/internal/messages"
	"psy-booking-bot/internal/models"
	"psy-booking-bot/internal/state"
	"psy-booking-bot/internal/storage"
	"psy-booking-bot/internal/telegram"
)

// Handler reacts to Telegram updates, whether they come from the webhook
// or from long polling.
type Handler struct {
	Repo       storage.Repository
	States     state.Store
	Booking    *booking.Service
	Notify     *telegram.Notifier
	Blobs      blob.Store
	ProjectURL string
}

// chat is who we are talking to in the current update.
type chat struct {
	id     int64
	client *models.Client
	admin  bool
}

// HandleUpdate processes one update. A returned error means the update was
// not handled; the user has already been told something went wrong.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) error {
	switch {
	case upd.CallbackQuery != nil:
		return h.HandleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		return h.HandleMessage(ctx, upd.Message)
	}
	return nil
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	c, err := h.chat(ctx, msg.Chat.ID, msg.From)
	if err != nil {
		return err
	}
	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, c, msg.Photo)
	}
	return h.handleText(ctx, c, msg)
}

// chat registers the sender on first contact and tells the admins about it.
func (h *Handler) chat(ctx context.Context, chatID int64, from *tgbotapi.User) (*chat, error) {
	in := &models.Client{TelegramID: from.ID}
	if from.FirstName != "" {
		in.FirstName = &from.FirstName
	}
	if from.LastName != "" {
		in.LastName = &from.LastName
	}
	if from.UserName != "" {
		in.Username = &from.UserName
	}
	client, created, err := h.Repo.UpsertClient(ctx, in)
	if err != nil {
		h.fail(chatID, err)
		return nil, fmt.Errorf("upsert client %d: %w", from.ID, err)
	}
	if created {
		log.Info().Int64("telegram_id", from.ID).Msg("new client")
		h.Notify.NotifyAdmins(messages.AdminNewClient(client))
	}
	return &chat{id: chatID, client: client, admin: h.Notify.IsAdmin(from.ID)}, nil
}

// fail logs err and shows the generic error message.
func (h *Handler) fail(chatID int64, err error) {
	log.Error().Err(err).Int64("chat_id", chatID).Msg("update failed")
	_ = h.Notify.Send(chatID, messages.GenericError, nil)
}

func (h *Handler) setState(ctx context.Context, chatID int64, st models.ChatState) {
	if err := h.States.Set(ctx, chatID, st); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Str("state", string(st.Kind)).Msg("set chat state")
	}
}

func (h *Handler) clearState(ctx context.Context, chatID int64) {
	if err := h.States.Clear(ctx, chatID); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("clear chat state")
	}
}

// Poll reads updates with long polling until ctx is cancelled.
func Poll(ctx context.Context, bot *tgbotapi.BotAPI, h *Handler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if err := h.HandleUpdate(ctx, upd); err != nil {
				log.Error().Err(err).Int("update_id", upd.UpdateID).Msg("handle update")
			}
		}
	}
}
