// Package telegramtest provides a recording telegram.Bot for tests.
package telegramtest

import (
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot records every call. Sends to chats listed in Fail return an error.
type Bot struct {
	mu       sync.Mutex
	Sent     []tgbotapi.Chattable
	Requests []tgbotapi.Chattable
	Raw      []string
	Fail     map[int64]bool
	FileURL  string
	// OnSend, when set, is called after a successful send.
	OnSend   func(tgbotapi.Chattable)
	nextID   int
}

func New() *Bot { return &Bot{Fail: map[int64]bool{}} }

func (b *Bot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	if chat := chatOf(c); b.Fail[chat] {
		b.mu.Unlock()
		return tgbotapi.Message{}, errors.New("telegramtest: forbidden")
	}
	b.Sent = append(b.Sent, c)
	b.nextID++
	msg := tgbotapi.Message{MessageID: b.nextID}
	hook := b.OnSend
	b.mu.Unlock()

	if hook != nil {
		hook(c)
	}
	return msg, nil
}

func (b *Bot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Requests = append(b.Requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *Bot) MakeRequest(endpoint string, _ tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Raw = append(b.Raw, endpoint)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *Bot) GetFileDirectURL(string) (string, error) {
	if b.FileURL == "" {
		return "", errors.New("telegramtest: no file")
	}
	return b.FileURL, nil
}

// Messages returns the text messages sent to chatID, in order.
func (b *Bot) Messages(chatID int64) []tgbotapi.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range b.Sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the last text message sent to chatID.
func (b *Bot) Last(chatID int64) (tgbotapi.MessageConfig, bool) {
	msgs := b.Messages(chatID)
	if len(msgs) == 0 {
		return tgbotapi.MessageConfig{}, false
	}
	return msgs[len(msgs)-1], true
}

func (b *Bot) Photos(chatID int64) []tgbotapi.PhotoConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range b.Sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok && p.ChatID == chatID {
			out = append(out, p)
		}
	}
	return out
}

func (b *Bot) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Sent, b.Requests, b.Raw = nil, nil, nil
}

func chatOf(c tgbotapi.Chattable) int64 {
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		return v.ChatID
	case tgbotapi.PhotoConfig:
		return v.ChatID
	}
	return 0
}
