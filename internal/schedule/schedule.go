// Package schedule saves the current week's slot layout as a template and
// stamps it onto future weeks.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"psy-booking-bot/internal/models"
	"psy-booking-bot/internal/storage"
)

var (
	ErrNoTemplate   = errors.New("no template saved")
	ErrInvalidWeeks = errors.New("weeks must be between 1 and 52")
)

// Weekdays in template order, Monday first.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

type Template struct {
	Days []DayTemplate `json:"days"`
}

type DayTemplate struct {
	Day   string         `json:"day"`
	Times []TimeTemplate `json:"times"`
}

type TimeTemplate struct {
	Time             string                  `json:"time"`
	AvailableFormats models.AvailableFormats `json:"available_formats"`
}

func (t *Template) Empty() bool { return t == nil || len(t.Days) == 0 }

type Store interface {
	ListSlotsBetween(ctx context.Context, from, to string) ([]models.Slot, error)
	GetSlotByDateTime(ctx context.Context, date, tm string) (*models.Slot, error)
	CreateSlot(ctx context.Context, date, tm string, formats models.AvailableFormats) (*models.Slot, error)
	UpdateFreeSlotFormats(ctx context.Context, id int64, formats models.AvailableFormats) (bool, error)
	GetSetting(ctx context.Context, key string, dst any) (bool, error)
	SetSetting(ctx context.Context, key string, value any) error
	DeleteSetting(ctx context.Context, key string) error
}

type Service struct {
	repo Store
	loc  *time.Location
	now  func() time.Time
}

func NewService(repo Store, loc *time.Location, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, loc: loc, now: now}
}

// WeekStart returns midnight of the Monday of t's week, in t's location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// NextMonday returns the Monday a template is applied from. It always lies in
// a later week: from Sunday it skips the following day and starts a week after.
func NextMonday(t time.Time) time.Time {
	var days int
	switch wd := t.Weekday(); wd {
	case time.Sunday:
		days = 8
	case time.Monday:
		days = 7
	default:
		days = 8 - int(wd)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, t.Location())
}

// Get returns the saved template, an empty one when none is saved.
func (s *Service) Get(ctx context.Context) (*Template, error) {
	tpl := &Template{Days: []DayTemplate{}}
	if _, err := s.repo.GetSetting(ctx, models.SettingScheduleTemplate, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *Service) Delete(ctx context.Context) error {
	return s.repo.DeleteSetting(ctx, models.SettingScheduleTemplate)
}

// Save builds a template from every slot, free or booked, of the current
// Monday to Sunday week and stores it.
func (s *Service) Save(ctx context.Context) (*Template, error) {
	monday := WeekStart(s.now().In(s.loc))
	sunday := monday.AddDate(0, 0, 6)
	slots, err := s.repo.ListSlotsBetween(ctx, monday.Format(models.DateLayout), sunday.Format(models.DateLayout))
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]TimeTemplate)
	for _, sl := range slots {
		formats := sl.AvailableFormats
		if formats == "" {
			formats = models.AvailableBoth
		}
		byDate[sl.Date] = append(byDate[sl.Date], TimeTemplate{Time: sl.Time, AvailableFormats: formats})
	}

	tpl := &Template{Days: []DayTemplate{}}
	for i, day := range Weekdays {
		date := monday.AddDate(0, 0, i).Format(models.DateLayout)
		if times := byDate[date]; len(times) > 0 {
			tpl.Days = append(tpl.Days, DayTemplate{Day: day, Times: times})
		}
	}

	if err := s.repo.SetSetting(ctx, models.SettingScheduleTemplate, tpl); err != nil {
		return nil, err
	}
	log.Info().Str("week", monday.Format(models.DateLayout)).Int("days", len(tpl.Days)).Int("slots", len(slots)).
		Msg("schedule template saved")
	return tpl, nil
}

// Apply creates the template's slots for weeks weeks starting at NextMonday.
// Existing slots are kept; a free one gets the template's formats. It returns
// the number of slots created.
func (s *Service) Apply(ctx context.Context, weeks int) (int, error) {
	if weeks < 1 || weeks > 52 {
		return 0, ErrInvalidWeeks
	}
	tpl, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	if tpl.Empty() {
		return 0, ErrNoTemplate
	}

	now := s.now().In(s.loc)
	today := now.Format(models.DateLayout)
	start := NextMonday(now)
	created := 0

	for week := 0; week < weeks; week++ {
		monday := start.AddDate(0, 0, 7*week)
		for _, day := range tpl.Days {
			idx := weekdayIndex(day.Day)
			if idx < 0 {
				log.Warn().Str("day", day.Day).Msg("unknown day in schedule template")
				continue
			}
			date := monday.AddDate(0, 0, idx).Format(models.DateLayout)
			if date < today {
				continue
			}
			for _, tt := range day.Times {
				ok, err := s.applySlot(ctx, date, tt)
				if err != nil {
					log.Error().Err(err).Str("date", date).Str("time", tt.Time).Msg("apply template slot")
					continue
				}
				if ok {
					created++
				}
			}
		}
	}

	log.Info().Int("weeks", weeks).Str("from", start.Format(models.DateLayout)).Int("created", created).
		Msg("schedule template applied")
	return created, nil
}

func (s *Service) applySlot(ctx context.Context, date string, tt TimeTemplate) (bool, error) {
	tm, err := models.NormalizeTime(tt.Time)
	if err != nil {
		return false, err
	}
	formats := tt.AvailableFormats
	if !formats.Valid() {
		formats = models.AvailableBoth
	}

	existing, err := s.repo.GetSlotByDateTime(ctx, date, tm)
	switch {
	case err == nil:
		if existing.Status == models.SlotFree && existing.AvailableFormats != formats {
			_, err = s.repo.UpdateFreeSlotFormats(ctx, existing.ID, formats)
		}
		return false, err
	case !errors.Is(err, storage.ErrNotFound):
		return false, err
	}

	slot, err := s.repo.CreateSlot(ctx, date, tm, formats)
	if err != nil {
		return false, fmt.Errorf("create slot: %w", err)
	}
	return slot != nil, nil
}

func weekdayIndex(day string) int {
	for i, d := range Weekdays {
		if d == day {
			return i
		}
	}
	return -1
}
