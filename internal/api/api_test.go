package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psy-booking-bot/internal/blob"
	"psy-booking-bot/internal/booking"
	"psy-booking-bot/internal/models"
	"psy-booking-bot/internal/schedule"
	"psy-booking-bot/internal/storage"
	"psy-booking-bot/internal/telegram"
	"psy-booking-bot/internal/telegram/telegramtest"
)

const adminID int64 = 900

var msk = time.FixedZone("UTC+3", 3*60*60)

type updates struct {
	got []tgbotapi.Update
	err error
}

func (u *updates) HandleUpdate(_ context.Context, upd tgbotapi.Update) error {
	u.got = append(u.got, upd)
	return u.err
}

type env struct {
	srv     *Server
	router  *gin.Engine
	db      *storage.DB
	bot     *telegramtest.Bot
	updates *updates
	dir     string
	ctx     context.Context
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	blobs, err := blob.NewLocal(dir, "http://bot.test")
	require.NoError(t, err)

	// воскресенье
	now := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, msk) }
	bot := telegramtest.New()
	u := &updates{}
	srv := &Server{
		Repo:     db,
		Booking:  booking.NewService(db, msk, booking.WithClock(now)),
		Schedule: schedule.NewService(db, msk, now),
		Notify:   telegram.NewNotifier(bot, []int64{adminID}, 0),
		Blobs:    blobs,
		Updates:  u,
	}
	return &env{srv: srv, router: srv.Router(), db: db, bot: bot, updates: u, dir: dir, ctx: context.Background()}
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, path, nil)
	} else {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func (e *env) client(t *testing.T, telegramID int64, name string) *models.Client {
	t.Helper()
	c, _, err := e.db.UpsertClient(e.ctx, &models.Client{TelegramID: telegramID, FirstName: &name})
	require.NoError(t, err)
	return c
}

func (e *env) lastText(t *testing.T, chatID int64) string {
	t.Helper()
	m, ok := e.bot.Last(chatID)
	require.True(t, ok, "no message to %d", chatID)
	return m.Text
}

func TestHealthAndReady(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = e.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhook(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/webhook", map[string]any{"update_id": 7})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])
	require.Len(t, e.updates.got, 1)
	assert.Equal(t, 7, e.updates.got[0].UpdateID)

	e.updates.err = errors.New("boom")
	w = e.do(t, http.MethodPost, "/webhook", map[string]any{"update_id": 8})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "boom", decode(t, w)["error"])
}

func TestCreateSlotIsIdempotent(t *testing.T) {
	e := newEnv(t)

	body := map[string]any{"date": "2025-06-03", "time": "10:00", "available_formats": "online"}
	w := e.do(t, http.MethodPost, "/api/slots", body)
	require.Equal(t, http.StatusOK, w.Code)
	first := decode(t, w)
	assert.Equal(t, "online", first["available_formats"])

	w = e.do(t, http.MethodPost, "/api/slots", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first["id"], decode(t, w)["id"])

	w = e.do(t, http.MethodPost, "/api/slots", map[string]any{"date": "2025-06-03", "time": "11:00", "available_formats": "phone"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/slots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.SlotView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "10:00", list[0].Time)
}

func TestListSlotsFromToday(t *testing.T) {
	e := newEnv(t)
	_, err := e.db.CreateSlot(e.ctx, "2025-05-30", "10:00", models.AvailableBoth)
	require.NoError(t, err)
	_, err = e.db.CreateSlot(e.ctx, "2025-06-01", "18:00", models.AvailableBoth)
	require.NoError(t, err)

	var list []models.SlotView
	w := e.do(t, http.MethodGet, "/api/slots", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = e.do(t, http.MethodGet, "/api/slots?from=2025-05-01", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	w = e.do(t, http.MethodGet, "/api/slots?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookForClient(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, 100, "Аня")

	w := e.do(t, http.MethodPost, "/book-for-client", map[string]any{"clientId": c.ID, "date": "2025-06-05", "time": "15:00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	slot, err := e.db.GetSlotByDateTime(e.ctx, "2025-06-05", "15:00")
	require.NoError(t, err)
	assert.Equal(t, models.SlotBooked, slot.Status)
	require.NotNil(t, slot.Format)
	assert.Equal(t, models.FormatOffline, *slot.Format)
	assert.Contains(t, e.lastText(t, 100), "Вам назначена консультация")

	w = e.do(t, http.MethodPost, "/book-for-client", map[string]any{"clientId": c.ID, "date": "2025-06-05", "time": "15:00"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Слот уже занят", decode(t, w)["error"])

	w = e.do(t, http.MethodPost, "/book-for-client", map[string]any{"clientId": c.ID, "date": "2025-05-31", "time": "15:00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/book-for-client", map[string]any{"clientId": 999, "date": "2025-06-06", "time": "15:00"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/book-for-client", map[string]any{"date": "2025-06-06"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRegularBookings(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, 100, "Аня")
	other := e.client(t, 200, "Боря")

	taken, err := e.db.CreateSlot(e.ctx, "2025-06-10", "09:00", models.AvailableBoth)
	require.NoError(t, err)
	_, err = e.db.BookSlot(e.ctx, other.ID, taken.ID, models.FormatOnline, nil)
	require.NoError(t, err)

	w := e.do(t, http.MethodPost, "/create-regular-bookings", map[string]any{
		"clientId": c.ID, "date": "2025-06-03", "time": "09:00", "weeks": 3, "format": "online",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 2, body["created"])
	assert.Len(t, body["errors"], 1)

	assert.Contains(t, e.lastText(t, 100), "регулярная консультация")
	assert.Contains(t, e.lastText(t, adminID), "Назначены регулярные консультации")

	slot, err := e.db.GetSlotByDateTime(e.ctx, "2025-06-17", "09:00")
	require.NoError(t, err)
	require.NotNil(t, slot.Comment)
	assert.Equal(t, booking.RegularComment, *slot.Comment)
	assert.Equal(t, models.AvailableOnline, slot.AvailableFormats)
}

func TestCreateRegularBookingsNothingCreated(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, 100, "Аня")
	other := e.client(t, 200, "Боря")

	taken, err := e.db.CreateSlot(e.ctx, "2025-06-03", "09:00", models.AvailableBoth)
	require.NoError(t, err)
	_, err = e.db.BookSlot(e.ctx, other.ID, taken.ID, models.FormatOffline, nil)
	require.NoError(t, err)

	w := e.do(t, http.MethodPost, "/create-regular-bookings", map[string]any{
		"clientId": c.ID, "date": "2025-06-03", "time": "09:00", "weeks": 1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Не удалось создать ни одной консультации", body["error"])
	assert.Len(t, body["errors"], 1)
	assert.Empty(t, e.bot.Messages(adminID))
}

func TestCancelBookingAdmin(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, 100, "Аня")
	slot, err := e.db.CreateSlot(e.ctx, "2025-06-01", "14:00", models.AvailableBoth)
	require.NoError(t, err)
	_, err = e.db.BookSlot(e.ctx, c.ID, slot.ID, models.FormatOffline, nil)
	require.NoError(t, err)

	// less than 24 hours left, admins are not limited
	w := e.do(t, http.MethodPost, "/cancel-booking-admin", map[string]any{"slotId": slot.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, e.lastText(t, 100), "Запись отменена")
	assert.Contains(t, e.lastText(t, 100), "Аня")

	got, err := e.db.GetSlot(e.ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SlotFree, got.Status)

	w = e.do(t, http.MethodPost, "/cancel-booking-admin", map[string]any{"slotId": slot.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/cancel-booking-admin", map[string]any{"slotId": 4242})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelBookingByID(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, 100, "Аня")
	slot, err := e.db.CreateSlot(e.ctx, "2025-06-04", "14:00", models.AvailableBoth)
	require.NoError(t, err)
	b, err := e.db.BookSlot(e.ctx, c.ID, slot.ID, models.FormatOnline, nil)
	require.NoError(t, err)

	w := e.do(t, http.MethodDelete, "/api/bookings/"+strconv.FormatInt(b.ID, 10), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/bookings?status=canceled", nil)
	var list []models.BookingView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	w = e.do(t, http.MethodGet, "/api/bookings?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteBookedSlotNotifiesClient(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, 100, "Аня")
	slot, err := e.db.CreateSlot(e.ctx, "2025-06-04", "14:00", models.AvailableBoth)
	require.NoError(t, err)
	_, err = e.db.BookSlot(e.ctx, c.ID, slot.ID, models.FormatOnline, nil)
	require.NoError(t, err)

	w := e.do(t, http.MethodDelete, "/api/slots/"+strconv.FormatInt(slot.ID, 10), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, e.lastText(t, 100), "Запись отменена")

	_, err = e.db.GetSlot(e.ctx, slot.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	w = e.do(t, http.MethodDelete, "/api/slots/"+strconv.FormatInt(slot.ID, 10), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodDelete, "/api/slots/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClients(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, 100, "Аня")

	w := e.do(t, http.MethodPut, "/api/clients/"+strconv.FormatInt(c.ID, 10), map[string]any{"first_name": " Анна ", "last_name": "Иванова"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/clients", nil)
	var list []models.ClientSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Анна", *list[0].FirstName)
	assert.Equal(t, "Иванова", *list[0].LastName)

	w = e.do(t, http.MethodDelete, "/api/clients/"+strconv.FormatInt(c.ID, 10), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodPut, "/api/clients/"+strconv.FormatInt(c.ID, 10), map[string]any{"first_name": "X"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentSettings(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/payment-card", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultCardNumber, decode(t, w)["card_number"])

	w = e.do(t, http.MethodPut, "/api/payment-settings", map[string]any{
		"payment_link": "https://pay.example/psy", "erip_path": "Услуги → Психолог", "card_number": "1111 2222",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/payment-settings", nil)
	body := decode(t, w)
	assert.Equal(t, "https://pay.example/psy", body["payment_link"])
	assert.Equal(t, "Услуги → Психолог", body["erip_path"])
	assert.Equal(t, "", body["account_number"])
	assert.Equal(t, "1111 2222", body["card_number"])

	// absent fields stay, empty ones are removed
	w = e.do(t, http.MethodPut, "/api/payment-settings", map[string]any{"payment_link": ""})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, e.do(t, http.MethodGet, "/api/payment-settings", nil))
	assert.Equal(t, "", body["payment_link"])
	assert.Equal(t, "Услуги → Психолог", body["erip_path"])

	w = e.do(t, http.MethodPut, "/api/payment-card", map[string]any{"card_number": "9999"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9999", decode(t, e.do(t, http.MethodGet, "/api/payment-card", nil))["card_number"])
}

func TestSosStatus(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, 100, "Аня")
	req, err := e.db.CreateSosRequest(e.ctx, c.ID, "")
	require.NoError(t, err)

	w := e.do(t, http.MethodPut, "/api/sos/"+strconv.FormatInt(req.ID, 10), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var list []models.SosView
	w = e.do(t, http.MethodGet, "/api/sos?status=viewed", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, int64(100), list[0].TelegramID)

	w = e.do(t, http.MethodPut, "/api/sos/"+strconv.FormatInt(req.ID, 10), map[string]any{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodPut, "/api/sos/777", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePaymentRemovesScreenshot(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, 100, "Аня")
	url, key, err := e.srv.Blobs.Save(e.ctx, blob.FolderPayments, "shot.jpg", strings.NewReader("png"))
	require.NoError(t, err)
	p, err := e.db.CreatePayment(e.ctx, c.ID, url, key)
	require.NoError(t, err)

	w := e.do(t, http.MethodGet, "/api/payments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), url)
	assert.NotContains(t, w.Body.String(), "storage_key")

	w = e.do(t, http.MethodDelete, "/api/payments/"+strconv.FormatInt(p.ID, 10), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NoFileExists(t, filepath.Join(e.dir, blob.FolderPayments, "shot.jpg"))

	w = e.do(t, http.MethodDelete, "/api/payments/"+strconv.FormatInt(p.ID, 10), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func aboutMeForm(t *testing.T, fields map[string]string, photo []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if photo != nil {
		fw, err := mw.CreateFormFile("photo", "me.png")
		require.NoError(t, err)
		_, err = fw.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *env) putAboutMe(t *testing.T, fields map[string]string, photo []byte) map[string]any {
	t.Helper()
	body, ct := aboutMeForm(t, fields, photo)
	r := httptest.NewRequest(http.MethodPut, "/about-me", body)
	r.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)
}

func TestAboutMe(t *testing.T) {
	e := newEnv(t)

	body := decode(t, e.do(t, http.MethodGet, "/api/about-me", nil))
	assert.Equal(t, "", body["text"])
	assert.Nil(t, body["photo_url"])

	body = e.putAboutMe(t, map[string]string{"text": "Психолог, 10 лет практики"}, []byte("img"))
	assert.Equal(t, true, body["success"])
	url, _ := body["photo_url"].(string)
	require.True(t, strings.HasPrefix(url, "http://bot.test/storage/about-me/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)
	file := filepath.Join(e.dir, blob.FolderAboutMe, filepath.Base(url))
	assert.FileExists(t, file)

	// text only keeps the photo
	body = e.putAboutMe(t, map[string]string{"text": "Обновлено"}, nil)
	assert.Equal(t, url, body["photo_url"])

	body = e.putAboutMe(t, map[string]string{"text": "Обновлено", "remove_photo": "true"}, nil)
	assert.Nil(t, body["photo_url"])
	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))

	body = decode(t, e.do(t, http.MethodGet, "/api/about-me", nil))
	assert.Equal(t, "Обновлено", body["text"])
	assert.Nil(t, body["photo_url"])
}

func TestScheduleTemplate(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/schedule-template/apply", map[string]any{"weeks": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decode(t, e.do(t, http.MethodGet, "/api/schedule-template", nil))
	assert.Equal(t, []any{}, body["days"])

	// wednesday of the current week
	_, err := e.db.CreateSlot(e.ctx, "2025-05-28", "10:00", models.AvailableOnline)
	require.NoError(t, err)
	w = e.do(t, http.MethodPost, "/api/schedule-template", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/schedule-template/apply", map[string]any{"weeks": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["created"])

	slot, err := e.db.GetSlotByDateTime(e.ctx, "2025-06-11", "10:00")
	require.NoError(t, err)
	assert.Equal(t, models.AvailableOnline, slot.AvailableFormats)

	w = e.do(t, http.MethodPost, "/api/schedule-template/apply", map[string]any{"weeks": 60})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusOK, e.do(t, http.MethodDelete, "/api/schedule-template", nil).Code)
	w = e.do(t, http.MethodPost, "/api/schedule-template/apply", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiaryFeed(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, 100, "Аня")
	_, err := e.db.CreateDiaryEntry(e.ctx, c.ID, "Сегодня спокойно")
	require.NoError(t, err)

	var list []models.DiaryView
	w := e.do(t, http.MethodGet, "/api/diary", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Аня", *list[0].FirstName)
}

func TestAdminAuth(t *testing.T) {
	e := newEnv(t)
	e.srv.AdminAuth = true
	e.srv.BotToken = "123:abc"
	e.srv.InitDataTTL = time.Hour
	e.router = e.srv.Router()

	w := e.do(t, http.MethodGet, "/api/clients", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, w)["code"])

	w = e.do(t, http.MethodGet, "/api/clients?init_data=query_id%3D1%26hash%3Dbad", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/book-for-client", map[string]any{"clientId": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// bot endpoints stay open
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/health", nil).Code)
}

func TestRecoveryReturnsJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/panic", func(*gin.Context) { panic("oops") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, w)["code"])
}
