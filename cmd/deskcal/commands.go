package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"deskcal/internal/capture"
	"deskcal/internal/config"
	"deskcal/internal/ics"
	appLog "deskcal/internal/log"
	"deskcal/internal/model"
	"deskcal/internal/nav"
	"deskcal/internal/schedule"
	"deskcal/internal/tui"
	"deskcal/internal/web"
)

func runTUI(e *env) error {
	// 화면을 깨뜨리지 않도록 로그는 파일로
	logPath := filepath.Join(filepath.Dir(e.flags.configPath), "deskcal.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err == nil {
		appLog.SetOutput(f)
		defer f.Close()
	} else {
		appLog.SetOutput(io.Discard)
	}
	return tui.Run(e.ctrl)
}

func runShow(e *env, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	month := fs.String("month", "", "Month to show (YYYY-MM), default current")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	g := e.ctrl.Current()
	if *month != "" {
		st, err := nav.Parse(*month)
		if err != nil {
			return usageError{err.Error()}
		}
		if g, err = e.ctrl.JumpTo(st.Year, st.Month); err != nil {
			return err
		}
	}

	fmt.Println(tui.RenderMonth(g, 0, tui.DefaultStyles()))
	return nil
}

func runList(e *env, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	date := fs.String("date", "", "Only list events on this date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	events := e.ctrl.Events()
	if *date != "" {
		d, err := model.ParseDate(*date)
		if err != nil {
			return usageError{err.Error()}
		}
		events = e.ctrl.EventsOn(d)
	}
	for _, ev := range events {
		fmt.Println(ev.String())
	}
	return nil
}

// dateFlags lets a command take either -date or -day/-month/-year.
type dateFlags struct {
	date, day, month, year string
}

func (d *dateFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&d.date, "date", "", "Event date (YYYY-MM-DD)")
	fs.StringVar(&d.day, "day", "", "Event day of month")
	fs.StringVar(&d.month, "month", "", "Event month (1-12)")
	fs.StringVar(&d.year, "year", "", "Event year")
}

func (d *dateFlags) resolve() (model.Date, error) {
	switch {
	case d.date != "":
		return model.ParseDate(d.date)
	case d.day != "" || d.month != "" || d.year != "":
		return model.ParseDayMonthYear(d.day, d.month, d.year)
	default:
		return model.Date{}, errors.New("a date is required (-date or -day/-month/-year)")
	}
}

func runAdd(e *env, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	var df dateFlags
	df.register(fs)
	name := fs.String("name", "", "Event name")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	d, err := df.resolve()
	if err != nil {
		return usageError{err.Error()}
	}
	if _, err := e.ctrl.AddEvent(d, *name); err != nil {
		if errors.Is(err, model.ErrEmptyName) {
			return usageError{"-name is required"}
		}
		return err
	}
	fmt.Println("added", model.Event{Date: d, Name: *name}.String())
	return nil
}

func runRemove(e *env, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	var df dateFlags
	df.register(fs)
	name := fs.String("name", "", "Event name")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	d, err := df.resolve()
	if err != nil {
		return usageError{err.Error()}
	}
	if *name == "" {
		return usageError{"-name is required"}
	}

	_, removed, err := e.ctrl.RemoveEvent(d, *name)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Println(tui.NoEventsMessage)
		return nil
	}
	fmt.Println("removed", model.Event{Date: d, Name: *name}.String())
	return nil
}

func runExport(e *env, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("out", "", "Output .ics path (default from config)")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	path := *out
	if path == "" {
		path = config.ResolvePath(e.flags.configPath, e.cfg.Export.Path)
	}
	events := e.ctrl.Events()
	if err := ics.WriteFile(path, events, time.Now()); err != nil {
		return err
	}
	appLog.Info("ics exported", "path", path, "count", len(events))
	return nil
}

func runImport(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	in := fs.String("in", "", "ICS file path or http(s) URL")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if *in == "" {
		return usageError{"-in is required"}
	}

	cacheDir := filepath.Join(filepath.Dir(e.flags.configPath), "cache")
	body, err := ics.NewFetcher(cacheDir).Read(ctx, *in)
	if err != nil {
		return err
	}

	parsed, err := ics.ParseICS(body)
	if err != nil {
		return err
	}
	res, err := ics.Expand(parsed, ics.WindowAround(time.Now(), e.cfg.Import.HorizonDays))
	if err != nil {
		return err
	}
	for _, uid := range res.Truncated {
		appLog.Warn("recurrence truncated", "uid", uid)
	}

	n, err := e.ctrl.ImportEvents(res.Events)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d events\n", n)
	return nil
}

func runServe(ctx context.Context, e *env) error {
	mu := &sync.Mutex{}

	if e.cfg.Export.Cron != "" {
		sched := schedule.New()
		exportPath := config.ResolvePath(e.flags.configPath, e.cfg.Export.Path)
		if err := sched.Add("ics-export", e.cfg.Export.Cron, schedule.ExportJob(e.ctrl, mu, exportPath)); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	}

	return web.NewServer(e.cfg, e.ctrl, mu).Run(ctx)
}

func runSnapshot(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	month := fs.String("month", "", "Month to capture (YYYY-MM), default current")
	out := fs.String("out", "", "Output PNG path (default from config)")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	st := e.ctrl.State()
	if *month != "" {
		var err error
		if st, err = nav.Parse(*month); err != nil {
			return usageError{err.Error()}
		}
	}
	path := *out
	if path == "" {
		path = config.ResolvePath(e.flags.configPath, e.cfg.Snapshot.Output)
	}

	// loopback only, so the page is served without auth
	cfg := *e.cfg
	cfg.BasicAuth = nil

	srvCtx, stop := context.WithCancel(ctx)
	defer stop()
	errCh := make(chan error, 1)
	go func() {
		errCh <- web.NewServer(&cfg, e.ctrl, &sync.Mutex{}).Run(srvCtx)
	}()

	base := "http://" + cfg.Listen
	if err := waitHealthy(ctx, base+"/health", errCh); err != nil {
		return err
	}

	err := capture.MonthPNG(ctx, capture.Options{
		URL:        fmt.Sprintf("%s/calendar?year=%d&month=%d", base, st.Year, int(st.Month)),
		OutputPath: path,
		Width:      cfg.Snapshot.Width,
		Height:     cfg.Snapshot.Height,
		Timeout:    time.Duration(cfg.Snapshot.TimeoutSeconds) * time.Second,
	})
	stop()
	if srvErr := <-errCh; srvErr != nil {
		appLog.Error("snapshot server failed", srvErr)
	}
	if err != nil {
		return err
	}
	appLog.Info("snapshot written", "path", path, "month", st.String())
	return nil
}

// waitHealthy polls url until it answers 200, the server exits or ctx ends.
func waitHealthy(ctx context.Context, url string, srvErr <-chan error) error {
	client := &http.Client{Timeout: time.Second}
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(10 * time.Second)

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case err := <-srvErr:
			if err == nil {
				err = errors.New("server stopped")
			}
			return fmt.Errorf("snapshot server: %w", err)
		case <-deadline:
			return errors.New("snapshot server did not become healthy")
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
