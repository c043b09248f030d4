package schedule

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psy-booking-bot/internal/models"
	"psy-booking-bot/internal/storage"
)

var msk = time.FixedZone("UTC+3", 3*60*60)

func day(s string) time.Time {
	t, err := time.ParseInLocation(models.DateLayout, s, msk)
	if err != nil {
		panic(err)
	}
	return t.Add(15 * time.Hour)
}

func TestWeekStart(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2025-06-02", "2025-06-02"}, // Monday
		{"2025-06-04", "2025-06-02"},
		{"2025-06-08", "2025-06-02"}, // Sunday
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WeekStart(day(tt.in)).Format(models.DateLayout), tt.in)
	}
}

func TestNextMonday(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2025-06-02", "2025-06-09"}, // Monday: +7
		{"2025-06-03", "2025-06-09"}, // Tuesday: +6
		{"2025-06-07", "2025-06-09"}, // Saturday: +2
		{"2025-06-08", "2025-06-16"}, // Sunday: +8
	}
	for _, tt := range tests {
		got := NextMonday(day(tt.in))
		assert.Equal(t, tt.want, got.Format(models.DateLayout), tt.in)
		assert.Equal(t, time.Monday, got.Weekday())
	}
}

func newService(t *testing.T, now time.Time) (*Service, *storage.DB) {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, msk, func() time.Time { return now }), db
}

func TestSaveAndApply(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t, day("2025-06-04")) // Wednesday

	for _, s := range []struct {
		date, tm string
		f        models.AvailableFormats
	}{
		{"2025-06-02", "10:00", models.AvailableOnline},
		{"2025-06-02", "12:00", models.AvailableBoth},
		{"2025-06-06", "18:00", models.AvailableOffline},
		{"2025-06-09", "10:00", models.AvailableBoth}, // next week, not part of the template
	} {
		_, err := db.CreateSlot(ctx, s.date, s.tm, s.f)
		require.NoError(t, err)
	}

	tpl, err := svc.Save(ctx)
	require.NoError(t, err)
	require.Len(t, tpl.Days, 2)
	assert.Equal(t, "monday", tpl.Days[0].Day)
	assert.Equal(t, []TimeTemplate{{"10:00", models.AvailableOnline}, {"12:00", models.AvailableBoth}}, tpl.Days[0].Times)
	assert.Equal(t, "friday", tpl.Days[1].Day)

	stored, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, tpl, stored)

	// 2025-06-09 10:00 exists and is free: formats are updated, nothing created
	created, err := svc.Apply(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, created)

	existing, err := db.GetSlotByDateTime(ctx, "2025-06-09", "10:00")
	require.NoError(t, err)
	assert.Equal(t, models.AvailableOnline, existing.AvailableFormats)

	fri, err := db.GetSlotByDateTime(ctx, "2025-06-20", "18:00")
	require.NoError(t, err)
	assert.Equal(t, models.AvailableOffline, fri.AvailableFormats)

	// applying again is idempotent
	created, err = svc.Apply(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestApplyKeepsBookedSlots(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t, day("2025-06-04"))

	require.NoError(t, db.SetSetting(ctx, models.SettingScheduleTemplate, Template{Days: []DayTemplate{
		{Day: "monday", Times: []TimeTemplate{{Time: "10:00", AvailableFormats: models.AvailableOnline}}},
	}}))

	slot, err := db.CreateSlot(ctx, "2025-06-09", "10:00", models.AvailableOffline)
	require.NoError(t, err)
	c, _, err := db.UpsertClient(ctx, &models.Client{TelegramID: 1})
	require.NoError(t, err)
	_, err = db.BookSlot(ctx, c.ID, slot.ID, models.FormatOffline, nil)
	require.NoError(t, err)

	created, err := svc.Apply(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, created)

	got, err := db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SlotBooked, got.Status)
	assert.Equal(t, models.AvailableOffline, got.AvailableFormats)
}

func TestApplyWithoutTemplate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, day("2025-06-04"))

	_, err := svc.Apply(ctx, 1)
	assert.ErrorIs(t, err, ErrNoTemplate)

	_, err = svc.Apply(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidWeeks)

	tpl, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, tpl.Empty())
	assert.NotNil(t, tpl.Days)

	require.NoError(t, svc.Delete(ctx))
}
