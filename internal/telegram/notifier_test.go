package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psy-booking-bot/internal/telegram/telegramtest"
)

func TestSendUsesHTML(t *testing.T) {
	bot := telegramtest.New()
	n := NewNotifier(bot, nil, 0)

	require.NoError(t, n.Send(10, "<b>hi</b>", nil))
	m, ok := bot.Last(10)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.ModeHTML, m.ParseMode)
	assert.Equal(t, "<b>hi</b>", m.Text)
}

func TestSendFailureIsReturned(t *testing.T) {
	bot := telegramtest.New()
	bot.Fail[10] = true
	n := NewNotifier(bot, nil, 0)

	assert.Error(t, n.Send(10, "x", nil))
	assert.Empty(t, bot.Messages(10))
}

func TestNotifyAdmins(t *testing.T) {
	bot := telegramtest.New()
	bot.Fail[2] = true
	n := NewNotifier(bot, []int64{1, 2, 3}, 0)

	n.NotifyAdmins("alert")
	assert.Len(t, bot.Messages(1), 1)
	assert.Empty(t, bot.Messages(2))
	assert.Len(t, bot.Messages(3), 1)
	assert.True(t, n.IsAdmin(3))
	assert.False(t, n.IsAdmin(4))
}

func TestBroadcastCountsSuccesses(t *testing.T) {
	bot := telegramtest.New()
	bot.Fail[2] = true
	n := NewNotifier(bot, nil, time.Millisecond)

	sent := n.Broadcast(context.Background(), []int64{1, 2, 3, 4}, "news")
	assert.Equal(t, 3, sent)
}

func TestBroadcastStopsOnCancel(t *testing.T) {
	bot := telegramtest.New()
	n := NewNotifier(bot, nil, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 0, n.Broadcast(ctx, []int64{1, 2}, "news"))
}

func TestSetupMenu(t *testing.T) {
	bot := telegramtest.New()
	n := NewNotifier(bot, nil, 0)

	n.SetupMenu(42)
	require.Len(t, bot.Requests, 1)
	cmds, ok := bot.Requests[0].(tgbotapi.SetMyCommandsConfig)
	require.True(t, ok)
	assert.Equal(t, MenuCommand, cmds.Commands[0].Command)
	assert.Equal(t, []string{"setChatMenuButton"}, bot.Raw)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("jpeg"))
	}))
	defer srv.Close()

	bot := telegramtest.New()
	bot.FileURL = srv.URL + "/photos/file_1.jpg"
	n := NewNotifier(bot, nil, 0)

	body, link, err := n.Download(context.Background(), "file-id")
	require.NoError(t, err)
	defer body.Close()
	b, _ := io.ReadAll(body)
	assert.Equal(t, "jpeg", string(b))
	assert.Equal(t, bot.FileURL, link)

	bot.FileURL = srv.URL + "/missing.jpg"
	_, _, err = n.Download(context.Background(), "file-id")
	assert.Error(t, err)
}

func TestDownloadErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	bot := telegramtest.New()
	n := NewNotifier(bot, nil, 0)

	for _, link := range []string{
		base + "/file/bot123456:SECRET-TOKEN/photos/file_1.jpg",
		"http://bad host/file/bot123456:SECRET-TOKEN/photos/file_1.jpg",
	} {
		bot.FileURL = link
		_, _, err := n.Download(context.Background(), "file-id")
		require.Error(t, err, link)
		assert.NotContains(t, err.Error(), "SECRET-TOKEN")
		assert.Contains(t, err.Error(), "file-id")
	}
}

func TestHideURL(t *testing.T) {
	err := &url.Error{
		Op:  "Post",
		URL: "https://api.telegram.org/bot123456:SECRET-TOKEN/sendMessage",
		Err: errors.New("connection reset by peer"),
	}
	got := hideURL(fmt.Errorf("send: %w", err))
	assert.Equal(t, "Post: connection reset by peer", got.Error())
	assert.ErrorIs(t, got, err.Err)

	plain := errors.New("Forbidden: bot was blocked by the user")
	assert.Same(t, plain, hideURL(plain))
}
