package models

import (
	"fmt"
	"time"
)

type SlotStatus string

const (
	SlotFree   SlotStatus = "free"
	SlotBooked SlotStatus = "booked"
)

// Format is the consultation format chosen by the client.
type Format string

const (
	FormatOnline  Format = "online"
	FormatOffline Format = "offline"
)

func (f Format) Valid() bool {
	return f == FormatOnline || f == FormatOffline
}

// AvailableFormats lists which formats a slot may be booked in.
type AvailableFormats string

const (
	AvailableOffline AvailableFormats = "offline"
	AvailableOnline  AvailableFormats = "online"
	AvailableBoth    AvailableFormats = "both"
)

func (a AvailableFormats) Valid() bool {
	return a == AvailableOffline || a == AvailableOnline || a == AvailableBoth
}

func (a AvailableFormats) Allows(f Format) bool {
	switch a {
	case AvailableBoth, "":
		return f.Valid()
	case AvailableOnline:
		return f == FormatOnline
	case AvailableOffline:
		return f == FormatOffline
	}
	return false
}

type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCanceled  BookingStatus = "canceled"
	BookingCompleted BookingStatus = "completed"
)

type SosStatus string

const (
	SosNew    SosStatus = "new"
	SosViewed SosStatus = "viewed"
)

// Layouts of Slot.Date and Slot.Time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Client is a telegram user who contacted the bot at least once.
type Client struct {
	ID         int64   `db:"id"          json:"id"`
	TelegramID int64   `db:"telegram_id" json:"telegram_id"`
	FirstName  *string `db:"first_name"  json:"first_name"`
	LastName   *string `db:"last_name"   json:"last_name"`
	Username   *string `db:"username"    json:"username"`
	CreatedAt  int64   `db:"created_at"  json:"created_at"`
}

// DisplayName returns the first name or fallback when it is unknown.
func (c *Client) DisplayName(fallback string) string {
	if c == nil || c.FirstName == nil || *c.FirstName == "" {
		return fallback
	}
	return *c.FirstName
}

// Mention returns "@username" or fallback.
func (c *Client) Mention(fallback string) string {
	if c == nil || c.Username == nil || *c.Username == "" {
		return fallback
	}
	return "@" + *c.Username
}

// ClientSummary is a client row enriched with counters for the admin list.
type ClientSummary struct {
	Client
	BookingsCount int `db:"bookings_count" json:"bookings_count"`
	DiaryCount    int `db:"diary_count"    json:"diary_count"`
}

// Slot is a bookable date/time unit.
//
// A booked slot always carries ClientID and Format, a free one carries neither.
type Slot struct {
	ID               int64            `db:"id"                json:"id"`
	Date             string           `db:"date"              json:"date"` // YYYY-MM-DD
	Time             string           `db:"time"              json:"time"` // HH:MM
	Status           SlotStatus       `db:"status"            json:"status"`
	ClientID         *int64           `db:"client_id"         json:"client_id"`
	Format           *Format          `db:"format"            json:"format"`
	AvailableFormats AvailableFormats `db:"available_formats" json:"available_formats"`
	Comment          *string          `db:"comment"           json:"comment"`
	CreatedAt        int64            `db:"created_at"        json:"created_at"`
}

// StartsAt interprets the slot's wall-clock date and time in loc.
func (s *Slot) StartsAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("slot %d: bad date/time %q %q: %w", s.ID, s.Date, s.Time, err)
	}
	return t, nil
}

// SlotView is a slot joined with its client, if any.
type SlotView struct {
	Slot
	TelegramID *int64  `db:"telegram_id" json:"telegram_id"`
	FirstName  *string `db:"first_name"  json:"first_name"`
	LastName   *string `db:"last_name"   json:"last_name"`
	Username   *string `db:"username"    json:"username"`
}

// Booking links a client to a slot they reserved.
type Booking struct {
	ID              int64         `db:"id"                json:"id"`
	ClientID        int64         `db:"client_id"         json:"client_id"`
	SlotID          int64         `db:"slot_id"           json:"slot_id"`
	Status          BookingStatus `db:"status"            json:"status"`
	Reminder24hSent bool          `db:"reminder_24h_sent" json:"reminder_24h_sent"`
	Reminder1hSent  bool          `db:"reminder_1h_sent"  json:"reminder_1h_sent"`
	CreatedAt       int64         `db:"created_at"        json:"created_at"`
}

// BookingView is a booking joined with its slot and client.
type BookingView struct {
	Booking
	Date       string  `db:"date"        json:"date"`
	Time       string  `db:"time"        json:"time"`
	Format     *Format `db:"format"      json:"format"`
	TelegramID int64   `db:"telegram_id" json:"telegram_id"`
	FirstName  *string `db:"first_name"  json:"first_name"`
	LastName   *string `db:"last_name"   json:"last_name"`
	Username   *string `db:"username"    json:"username"`
}

// Slot returns the slot part of the view, enough for time computations.
func (b *BookingView) Slot() Slot {
	return Slot{ID: b.SlotID, Date: b.Date, Time: b.Time, Format: b.Format}
}

// DiaryEntry is append-only.
type DiaryEntry struct {
	ID        int64  `db:"id"         json:"id"`
	ClientID  int64  `db:"client_id"  json:"client_id"`
	Text      string `db:"text"       json:"text"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

type DiaryView struct {
	DiaryEntry
	FirstName *string `db:"first_name" json:"first_name"`
	LastName  *string `db:"last_name"  json:"last_name"`
	Username  *string `db:"username"   json:"username"`
}

type SosRequest struct {
	ID        int64     `db:"id"         json:"id"`
	ClientID  int64     `db:"client_id"  json:"client_id"`
	Text      *string   `db:"text"       json:"text"`
	Status    SosStatus `db:"status"     json:"status"`
	CreatedAt int64     `db:"created_at" json:"created_at"`
}

type SosView struct {
	SosRequest
	TelegramID int64   `db:"telegram_id" json:"telegram_id"`
	FirstName  *string `db:"first_name"  json:"first_name"`
	LastName   *string `db:"last_name"   json:"last_name"`
	Username   *string `db:"username"    json:"username"`
}

// Payment is a screenshot a client sent after paying.
type Payment struct {
	ID            int64  `db:"id"             json:"id"`
	ClientID      int64  `db:"client_id"      json:"client_id"`
	ScreenshotURL string `db:"screenshot_url" json:"screenshot_url"`
	StorageKey    string `db:"storage_key"    json:"-"`
	CreatedAt     int64  `db:"created_at"     json:"created_at"`
}

type PaymentView struct {
	Payment
	TelegramID int64   `db:"telegram_id" json:"telegram_id"`
	FirstName  *string `db:"first_name"  json:"first_name"`
	LastName   *string `db:"last_name"   json:"last_name"`
	Username   *string `db:"username"    json:"username"`
}

// Setting is a key with a JSON value, edited from the admin panel.
type Setting struct {
	Key       string `db:"key"        json:"key"`
	Value     string `db:"value"      json:"value"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
}

// Well-known setting keys.
const (
	SettingPaymentLink      = "payment_link"
	SettingEripPath         = "erip_path"
	SettingAccountNumber    = "account_number"
	SettingPaymentCard      = "payment_card"
	SettingScheduleTemplate = "schedule_template"
	SettingAboutMeText      = "about_me_text"
	SettingAboutMePhoto     = "about_me_photo"
)
