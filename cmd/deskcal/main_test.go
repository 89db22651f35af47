package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deskcal/internal/model"
)

func newTestEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	e, err := bootstrap(flagConfig{configPath: filepath.Join(dir, "config.yaml")})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestBootstrapWritesDefaultConfig(t *testing.T) {
	e := newTestEnv(t)
	if _, err := os.Stat(e.flags.configPath); err != nil {
		t.Errorf("config not written: %v", err)
	}
	if want := filepath.Join(filepath.Dir(e.flags.configPath), "events.txt"); e.eventsPath != want {
		t.Errorf("events path = %q, want %q", e.eventsPath, want)
	}
}

func TestDateFlags(t *testing.T) {
	want := model.Date{Year: 2024, Month: time.February, Day: 29}

	d, err := (&dateFlags{date: "2024-02-29"}).resolve()
	if err != nil || d != want {
		t.Errorf("-date: %v %v", d, err)
	}
	d, err = (&dateFlags{day: "29", month: "2", year: "2024"}).resolve()
	if err != nil || d != want {
		t.Errorf("-day/-month/-year: %v %v", d, err)
	}
	if _, err := (&dateFlags{day: "29", month: "2", year: "2023"}).resolve(); err == nil {
		t.Error("29 Feb 2023 should be rejected")
	}
	if _, err := (&dateFlags{}).resolve(); err == nil {
		t.Error("missing date should be rejected")
	}
}

func TestAddAndRemoveCommands(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	if err := run(ctx, e, "add", []string{"-date", "2025-03-15", "-name", "Meeting, room 2"}); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(e.eventsPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "2025-03-15,Meeting\\, room 2\n" {
		t.Errorf("file = %q", raw)
	}

	if err := run(ctx, e, "remove", []string{"-date", "2025-03-15", "-name", "Meeting, room 2"}); err != nil {
		t.Fatal(err)
	}
	if len(e.ctrl.Events()) != 0 {
		t.Errorf("events = %+v", e.ctrl.Events())
	}
}

func TestAddRequiresName(t *testing.T) {
	e := newTestEnv(t)
	err := run(context.Background(), e, "add", []string{"-date", "2025-03-15"})
	var usage usageError
	if !errors.As(err, &usage) {
		t.Errorf("err = %v, want usage error", err)
	}
}

func TestExportAndImportCommands(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	d := model.Date{Year: time.Now().Year(), Month: time.Now().Month(), Day: 1}
	if _, err := e.ctrl.AddEvent(d, "Rent"); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "out.ics")
	if err := run(ctx, e, "export", []string{"-out", out}); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "SUMMARY:Rent") {
		t.Errorf("export = %s", raw)
	}

	if err := run(ctx, e, "import", []string{"-in", out}); err != nil {
		t.Fatal(err)
	}
	if got := e.ctrl.EventsOn(d); len(got) != 2 {
		t.Errorf("events after re-import = %+v", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	e := newTestEnv(t)
	err := run(context.Background(), e, "frobnicate", nil)
	var usage usageError
	if !errors.As(err, &usage) {
		t.Errorf("err = %v, want usage error", err)
	}
}
