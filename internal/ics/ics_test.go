package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deskcal/internal/model"
)

const feed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:weekly@test
DTSTAMP:20250101T000000Z
DTSTART;VALUE=DATE:20250106
SUMMARY:Standup
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE;VALUE=DATE:20250113
END:VEVENT
BEGIN:VEVENT
UID:weekly@test
DTSTAMP:20250101T000000Z
RECURRENCE-ID;VALUE=DATE:20250120
DTSTART;VALUE=DATE:20250121
SUMMARY:Standup (moved)
END:VEVENT
BEGIN:VEVENT
UID:single@test
DTSTAMP:20250101T000000Z
DTSTART:20250110T120000Z
DTEND:20250110T130000Z
SUMMARY:Dentist
END:VEVENT
BEGIN:VEVENT
UID:nosummary@test
DTSTAMP:20250101T000000Z
DTSTART;VALUE=DATE:20250111
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseAndExpand(t *testing.T) {
	parsed, err := ParseICS(crlf(feed))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(parsed) != 3 {
		t.Fatalf("parsed %d events, want 3 (summary-less one skipped)", len(parsed))
	}

	w := Window{
		Start: time.Date(2024, time.December, 1, 0, 0, 0, 0, time.Local),
		End:   time.Date(2025, time.March, 1, 0, 0, 0, 0, time.Local),
	}
	res, err := Expand(parsed, w)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	want := []string{
		"2025-01-06 - Standup",
		"2025-01-10 - Dentist",
		"2025-01-21 - Standup (moved)",
		"2025-01-27 - Standup",
	}
	if len(res.Events) != len(want) {
		t.Fatalf("got %d events: %v", len(res.Events), res.Events)
	}
	for i, ev := range res.Events {
		if ev.String() != want[i] {
			t.Errorf("event %d = %q, want %q", i, ev.String(), want[i])
		}
	}
}

func TestExpandWindowBoundsRecurrence(t *testing.T) {
	parsed, err := ParseICS(crlf(feed))
	if err != nil {
		t.Fatal(err)
	}
	w := Window{
		Start: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.Local),
		End:   time.Date(2025, time.January, 25, 0, 0, 0, 0, time.Local),
	}
	res, err := Expand(parsed, w)
	if err != nil {
		t.Fatal(err)
	}
	// The single event is imported regardless of the window.
	var names []string
	for _, ev := range res.Events {
		names = append(names, ev.String())
	}
	got := strings.Join(names, "|")
	if got != "2025-01-10 - Dentist|2025-01-21 - Standup (moved)" {
		t.Errorf("events = %s", got)
	}
}

func TestExpandRejectsInvertedWindow(t *testing.T) {
	now := time.Now()
	if _, err := Expand(nil, Window{Start: now, End: now.Add(-time.Hour)}); err == nil {
		t.Error("expected error")
	}
}

func TestExportAllDayEvents(t *testing.T) {
	events := []model.Event{
		{Date: model.Date{Year: 2025, Month: time.March, Day: 15}, Name: "Meeting"},
		{Date: model.Date{Year: 2025, Month: time.March, Day: 15}, Name: "Meeting"},
	}
	out := Export(events, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"PRODID:" + ProductID,
		"SUMMARY:Meeting",
		"DTSTART;VALUE=DATE:20250315",
		"DTEND;VALUE=DATE:20250316",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q", want)
		}
	}
	if n := strings.Count(out, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("VEVENT count = %d, want 2 (duplicates kept)", n)
	}
	if eventUID(events[0], 0) == eventUID(events[1], 1) {
		t.Error("duplicate events must get distinct UIDs")
	}

	// Exported events come back as the same dated events.
	parsed, err := ParseICS([]byte(out))
	if err != nil {
		t.Fatal(err)
	}
	res, err := Expand(parsed, WindowAround(time.Now(), 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Events) != 2 || res.Events[0] != events[0] {
		t.Errorf("re-import = %+v", res.Events)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.ics")
	events := []model.Event{{Date: model.Date{Year: 2025, Month: time.May, Day: 1}, Name: "x"}}
	if err := WriteFile(path, events, time.Now()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "DTSTART;VALUE=DATE:20250501") {
		t.Errorf("unexpected file: %s", data)
	}
}

func TestFetcherUsesETagCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("BODY"))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		body, err := f.Read(ctx, srv.URL+"/feed.ics?token=secret")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if string(body) != "BODY" {
			t.Fatalf("fetch %d body = %q", i, body)
		}
	}
	if hits != 2 {
		t.Errorf("hits = %d", hits)
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://example.com/private/cal.ics?token=abc"); got != "https://example.com/...(redacted)" {
		t.Errorf("redactURL = %q", got)
	}
}
