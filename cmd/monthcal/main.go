package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"monthcal/internal/bucket"
	"monthcal/internal/calendar"
	"monthcal/internal/config"
	"monthcal/internal/grid"
	"monthcal/internal/ics"
	appLog "monthcal/internal/log"
	"monthcal/internal/palette"
	"monthcal/internal/termview"
	"monthcal/internal/web"
)

const version = "0.1.0"

// app bundles what every subcommand needs after config loading.
type app struct {
	conf  *config.Config
	cal   *calendar.Gregorian
	store *ics.Store
}

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "monthcal",
		Short:         "Month-view calendar backend for ICS subscriptions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	defaultPath := os.Getenv(config.EnvConfigPath)
	if defaultPath == "" {
		defaultPath = "/etc/monthcal/config.yaml"
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultPath, "Path to config file (env "+config.EnvConfigPath+")")

	load := func() (*app, error) {
		return loadApp(configPath)
	}

	root.AddCommand(newGridCmd(load), newEventsCmd(load), newServeCmd(load))
	return root
}

func loadApp(path string) (*app, error) {
	conf, err := config.Load(path)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", path)
		return nil, err
	}

	appLog.SetLevel(appLog.ParseLevel(conf.Log.Level))
	appLog.EnableFile(appLog.FileOptions{
		Path:       conf.Log.File,
		MaxSizeMB:  conf.Log.MaxSizeMB,
		MaxBackups: conf.Log.MaxBackups,
	})

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "timezone", conf.Timezone)
	}

	sources := make([]ics.Source, 0, len(conf.ICS))
	for _, c := range conf.ICS {
		if c.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: c.SourceID(), URL: c.URL})
	}
	fetcher := ics.NewFetcher(ics.FetcherOptions{CacheDir: conf.CacheDir})

	appLog.Info("effective config",
		"version", version,
		"listen", conf.Listen,
		"timezone", loc.String(),
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"ics_count", len(sources),
	)

	return &app{
		conf:  conf,
		cal:   calendar.NewGregorian(loc),
		store: ics.NewStore(fetcher, sources, loc),
	}, nil
}

func newGridCmd(load func() (*app, error)) *cobra.Command {
	var date, weekStart string
	var offline bool

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print the 6x7 month grid",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			ref, err := parseMonth(date, a.cal.Location())
			if err != nil {
				return err
			}
			cfg := a.conf.CalendarConfig()
			if weekStart != "" {
				d, err := calendar.ParseWeekday(weekStart)
				if err != nil {
					return err
				}
				cfg.FirstDayOfWeek = d
			}

			g := grid.Generate(ref, cfg, a.cal)
			if g.Empty() {
				return fmt.Errorf("cannot render month of %s", date)
			}

			buckets := bucket.Buckets{}
			if !offline {
				buckets, err = bucket.BucketByDay(cmd.Context(), a.store, ref, a.cal, bucket.Filter{})
				if err != nil {
					return err
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), termview.Month(g, buckets, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Month to show (YYYY-MM or YYYY-MM-DD, default current)")
	cmd.Flags().StringVar(&weekStart, "week-start", "", "First day of week (overrides config)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Do not fetch events")
	return cmd
}

func newEventsCmd(load func() (*app, error)) *cobra.Command {
	var date, calendars string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the month's events grouped by start day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			ref, err := parseMonth(date, a.cal.Location())
			if err != nil {
				return err
			}

			var filter bucket.Filter
			for _, id := range strings.Split(calendars, ",") {
				if id = strings.TrimSpace(id); id != "" {
					filter.SourceIDs = append(filter.SourceIDs, id)
				}
			}

			buckets, err := bucket.BucketByDay(cmd.Context(), a.store, ref, a.cal, filter)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), termview.Agenda(buckets))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Month to list (YYYY-MM or YYYY-MM-DD, default current)")
	cmd.Flags().StringVar(&calendars, "calendars", "", "Comma-separated source IDs (default all)")
	return cmd
}

func newServeCmd(load func() (*app, error)) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the month API and refresh feeds on the configured schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer appLog.Close()

			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				a.conf.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.store.Refresh(ctx); err != nil {
				appLog.Error("initial refresh incomplete", err)
			}

			scheduler := cron.New()
			if _, err := scheduler.AddFunc(a.conf.RefreshCron, func() {
				if err := a.store.Refresh(ctx); err != nil {
					appLog.Error("scheduled refresh incomplete", err)
				}
			}); err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", a.conf.RefreshCron, err)
			}
			scheduler.Start()
			defer func() { <-scheduler.Stop().Done() }()

			srv := web.NewServer(web.Options{
				Config:   a.conf,
				Store:    a.store,
				Calendar: a.cal,
				Colors:   palette.NewCache(a.conf.ColorSeed),
			})
			err = srv.ListenAndServe(ctx)
			appLog.Info("monthcal exiting")
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

// parseMonth accepts YYYY-MM or YYYY-MM-DD; empty means now.
func parseMonth(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Now().In(loc), nil
	}
	for _, layout := range []string{time.DateOnly, "2006-01"} {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM or YYYY-MM-DD", v)
}
