package models

import (
	"fmt"
	"strings"
	"time"
)

// ReminderKind identifies one of the two advance notices of a booking.
type ReminderKind string

const (
	Reminder24h ReminderKind = "24h"
	Reminder1h  ReminderKind = "1h"
)

// NormalizeDate accepts "YYYY-MM-DD" optionally followed by a "T..." suffix.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i > 0 {
		s = s[:i]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q", s)
	}
	return t.Format(DateLayout), nil
}

// NormalizeTime accepts "H:MM", "HH:MM" or "HH:MM:SS" and returns "HH:MM".
func NormalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout), nil
		}
	}
	if len(s) == 4 && s[1] == ':' {
		return NormalizeTime("0" + s)
	}
	return "", fmt.Errorf("invalid time %q", s)
}

// Setting payloads, stored as JSON values.
type TextSetting struct {
	Value string `json:"value"`
}

type CardSetting struct {
	CardNumber string `json:"card_number"`
}

type PhotoSetting struct {
	PhotoURL   string `json:"photo_url"`
	StorageKey string `json:"storage_key,omitempty"`
}
