// Package telegram wraps the outbound Bot API calls the bot makes.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Bot is the subset of *tgbotapi.BotAPI used by the bot.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

const MenuCommand = "menu"

type Notifier struct {
	bot     Bot
	admins  []int64
	limiter *rate.Limiter
	http    *http.Client
}

// NewNotifier sends through bot. Broadcasts send at most one message per
// broadcastDelay.
func NewNotifier(bot Bot, admins []int64, broadcastDelay time.Duration) *Notifier {
	lim := rate.NewLimiter(rate.Inf, 1)
	if broadcastDelay > 0 {
		lim = rate.NewLimiter(rate.Every(broadcastDelay), 1)
	}
	return &Notifier{
		bot:     bot,
		admins:  admins,
		limiter: lim,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (n *Notifier) Admins() []int64 { return n.admins }

func (n *Notifier) IsAdmin(telegramID int64) bool {
	return slices.Contains(n.admins, telegramID)
}

// Send sends an HTML message. markup may be nil. A failure is logged and
// returned; callers usually ignore it.
func (n *Notifier) Send(chatID int64, text string, markup any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := n.bot.Send(msg); err != nil {
		err = hideURL(err)
		log.Error().Err(err).Int64("chat_id", chatID).Msg("sendMessage failed")
		return err
	}
	return nil
}

func (n *Notifier) SendPhoto(chatID int64, photoURL, caption string, markup any) error {
	p := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	p.Caption = caption
	p.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		p.ReplyMarkup = markup
	}
	if _, err := n.bot.Send(p); err != nil {
		err = hideURL(err)
		log.Error().Err(err).Int64("chat_id", chatID).Msg("sendPhoto failed")
		return err
	}
	return nil
}

func (n *Notifier) NotifyAdmins(text string) {
	for _, id := range n.admins {
		_ = n.Send(id, text, nil)
	}
}

// Answer acknowledges a callback query so the client stops the spinner.
func (n *Notifier) Answer(callbackID, text string) {
	if _, err := n.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Warn().Err(hideURL(err)).Str("callback_id", callbackID).Msg("answerCallbackQuery failed")
	}
}

// Broadcast sends text to every chat in ids, one at a time, and returns how
// many sends succeeded. It stops early when ctx is done.
func (n *Notifier) Broadcast(ctx context.Context, ids []int64, text string) int {
	sent := 0
	for _, id := range ids {
		if err := n.limiter.Wait(ctx); err != nil {
			log.Warn().Err(err).Int("sent", sent).Msg("broadcast interrupted")
			break
		}
		if n.Send(id, text, nil) == nil {
			sent++
		}
	}
	return sent
}

// SetupMenu registers the /menu command and switches the chat's menu
// button to the command list.
func (n *Notifier) SetupMenu(chatID int64) {
	cmds := tgbotapi.NewSetMyCommands(tgbotapi.BotCommand{
		Command:     MenuCommand,
		Description: "🏠 Главное меню",
	})
	if _, err := n.bot.Request(cmds); err != nil {
		log.Warn().Err(hideURL(err)).Msg("setMyCommands failed")
	}

	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	if err := params.AddInterface("menu_button", map[string]string{"type": "commands"}); err != nil {
		log.Warn().Err(err).Msg("encode menu button")
		return
	}
	if _, err := n.bot.MakeRequest("setChatMenuButton", params); err != nil {
		log.Warn().Err(hideURL(err)).Int64("chat_id", chatID).Msg("setChatMenuButton failed")
	}
}

// Download fetches a file sent to the bot. The caller closes the body.
func (n *Notifier) Download(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	link, err := n.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, "", fmt.Errorf("telegram: getFile %s: %w", fileID, hideURL(err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, "", fmt.Errorf("telegram: download %s: %w", fileID, hideURL(err))
	}
	resp, err := n.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("telegram: download %s: %w", fileID, hideURL(err))
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("telegram: download %s: status %d", fileID, resp.StatusCode)
	}
	return resp.Body, link, nil
}

// hideURL drops the request URL from transport errors. Bot API and file
// URLs carry the bot token.
func hideURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}
