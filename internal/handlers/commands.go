package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	txtMainMenu = "Вы в главном меню:"
	txtUseMenu  = "Используйте меню для навигации:"
)

func (h *Handler) handleText(ctx context.Context, c *chat, msg *tgbotapi.Message) error {
	text := strings.TrimSpace(msg.Text)

	switch {
	case msg.IsCommand() && (msg.Command() == "start" || msg.Command() == "menu"), text == btnMenu:
		h.clearState(ctx, c.id)
		if msg.IsCommand() && msg.Command() == "start" {
			h.handleStart(c)
		}
		h.sendMainMenu(c, txtMainMenu)
		return nil

	case msg.IsCommand() && msg.Command() == "cancel" && c.admin:
		h.clearState(ctx, c.id)
		h.sendMainMenu(c, "Отменено")
		return nil
	}

	return h.continueFlow(ctx, c, text)
}

// handleStart sets up the chat's menu button and shows the reply keyboard.
func (h *Handler) handleStart(c *chat) {
	h.Notify.SetupMenu(c.id)
	_ = h.Notify.Send(c.id, "👋 Добро пожаловать!", menuKeyboard())
}

func (h *Handler) sendMainMenu(c *chat, text string) {
	_ = h.Notify.Send(c.id, text, h.mainMenu(c.admin))
}
