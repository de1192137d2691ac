// Package slots derives the candidate time slots for a service day from
// the fixed business-hours template.  Generation is pure and stateless;
// availability is computed by subtracting the labels currently reserved
// in the store.
package slots

import "time"

// Business-hours template: half-hour marks from 08:00 up to, and
// including, the last slot before closing time.  Slot granularity is
// fixed at 30 minutes regardless of a service's advertised duration;
// duration is informational only in this design.
const (
	OpeningHour = 8
	ClosingHour = 20
	StepMinutes = 30
)

// DateLayout is the calendar-day format used across the API.
const DateLayout = "2006-01-02"

// HoraLayout is the slot-label format.
const HoraLayout = "15:04"

// Template returns every slot label of the daily template in ascending
// order: "08:00", "08:30", ..., "19:30".  The result is freshly
// allocated on each call so callers may mutate it.
func Template() []string {
	labels := make([]string, 0, (ClosingHour-OpeningHour)*60/StepMinutes)
	day := time.Date(2000, 1, 1, OpeningHour, 0, 0, 0, time.UTC)
	end := time.Date(2000, 1, 1, ClosingHour, 0, 0, 0, time.UTC)
	for t := day; t.Before(end); t = t.Add(StepMinutes * time.Minute) {
		labels = append(labels, t.Format(HoraLayout))
	}
	return labels
}

// ValidLabel reports whether hora is a well-formed template label:
// zero-padded HH:MM, within business hours and aligned to the slot
// step.  time.Parse alone is too lenient ("8:00" parses), and a
// non-canonical spelling would dodge the uniqueness index and the
// availability subtraction, so the label must round-trip exactly.
func ValidLabel(hora string) bool {
	t, err := time.Parse(HoraLayout, hora)
	if err != nil || t.Format(HoraLayout) != hora {
		return false
	}
	if t.Hour() < OpeningHour || t.Hour() >= ClosingHour {
		return false
	}
	return t.Minute()%StepMinutes == 0
}

// CanonicalDate parses fecha as a calendar day and returns its
// canonical zero-padded spelling.  Stored rows and index keys compare
// dates as strings, so every path normalizes through here.
func CanonicalDate(fecha string) (string, time.Time, error) {
	t, err := time.Parse(DateLayout, fecha)
	if err != nil {
		return "", time.Time{}, err
	}
	return t.Format(DateLayout), t, nil
}

// Available subtracts the reserved labels from the template and, when
// fecha is the current calendar day, drops slots whose start time has
// already passed.  fecha must be in DateLayout form; now supplies the
// current wall-clock time so callers and tests control it explicitly.
// Labels are string-comparable because they are zero-padded HH:MM.
func Available(reserved []string, fecha string, now time.Time) []string {
	taken := make(map[string]struct{}, len(reserved))
	for _, h := range reserved {
		taken[h] = struct{}{}
	}
	cutoff := ""
	if fecha == now.Format(DateLayout) {
		cutoff = now.Format(HoraLayout)
	}
	free := make([]string, 0)
	for _, h := range Template() {
		if _, ok := taken[h]; ok {
			continue
		}
		if cutoff != "" && h <= cutoff {
			continue
		}
		free = append(free, h)
	}
	return free
}
