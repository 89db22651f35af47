package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	ical "github.com/arran4/golang-ical"

	"deskcal/internal/model"
)

// ProductID is written as PRODID of exported calendars.
const ProductID = "-//deskcal//Desk Calendar//EN"

// Export renders events as an iCalendar document with one all-day VEVENT per
// event. UIDs are derived from date, name and the occurrence count of that
// pair, so re-exporting an unchanged store yields the same UIDs.
func Export(events []model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	seen := make(map[model.Event]int)
	for _, ev := range events {
		n := seen[ev]
		seen[ev] = n + 1

		start := ev.Date.Time()
		vev := cal.AddEvent(eventUID(ev, n))
		vev.SetDtStampTime(stamp.UTC())
		vev.SetSummary(ev.Name)
		vev.SetAllDayStartAt(start)
		vev.SetAllDayEndAt(start.AddDate(0, 0, 1))
	}

	return cal.Serialize()
}

// WriteFile exports events to path, replacing it atomically.
func WriteFile(path string, events []model.Event, stamp time.Time) error {
	data := Export(events, stamp)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ics export: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".deskcal-ics-*.tmp")
	if err != nil {
		return fmt.Errorf("ics export: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ics export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ics export: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("ics export: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("ics export: %w", err)
	}
	return nil
}

func eventUID(ev model.Event, n int) string {
	sum := sha256.Sum256([]byte(ev.Name))
	return fmt.Sprintf("%s-%s-%d@deskcal", ev.Date.String(), hex.EncodeToString(sum[:6]), n)
}
