package commands

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cptracker-backend/lib/configutil"
	"cptracker-backend/lib/serviceutil"
	"cptracker-backend/lib/timezone"
	"cptracker-backend/services/tracker"
	"cptracker-backend/services/tracker/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

type Config struct {
	Roster        string `json:"roster"`
	GymContests   string `json:"gym_contests"`
	UnratedIds    string `json:"unrated_ids"`
	Group         string `json:"group"`
	AllowUnsolved bool   `json:"allow_unsolved"`
	// inclusive ingestion window, "2006-01-02" in UTC; empty is open
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
}

var updateConfig *string
var updateOut *string
var updateArchiveDb *string

func init() {
	updateConfig = updateCmd.Flags().String("config", "config.json5", "The run configuration to use.")
	updateOut = updateCmd.Flags().String("out", "submissions.json", "The file to write the canonical collection to.")
	updateArchiveDb = updateCmd.Flags().String("archive-db", "", "Optionally archive the run to this sqlite database.")
	rootCmd.AddCommand(updateCmd)
}

func parseDay(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

func runConfig(cfg Config) (tracker.Config, error) {
	start, err := parseDay(cfg.WindowStart)
	if err != nil {
		return tracker.Config{}, fmt.Errorf("parse window_start: %w", err)
	}
	end, err := parseDay(cfg.WindowEnd)
	if err != nil {
		return tracker.Config{}, fmt.Errorf("parse window_end: %w", err)
	}

	return tracker.Config{
		RosterPath:      cfg.Roster,
		GymContestsPath: cfg.GymContests,
		UnratedIdsPath:  cfg.UnratedIds,
		Group:           cfg.Group,
		AllowUnsolved:   cfg.AllowUnsolved,
		Window:          tracker.Window{Start: start, End: end},
		Credentials: tracker.Credentials{
			Username: os.Getenv("CF_USERNAME"),
			Password: os.Getenv("CF_PASSWORD"),
		},
	}, nil
}

func update(ctx context.Context) {
	cfg, err := configutil.ReadConfig[Config](*updateConfig)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	trackerCfg, err := runConfig(cfg)
	if err != nil {
		serviceutil.Fatal("invalid config", err)
	}

	t1 := time.Now()
	submissions, err := tracker.Run(ctx, trackerCfg)
	if err != nil {
		serviceutil.Fatal("run failed, output not written", err)
	}
	t2 := time.Now()
	slog.Info("run complete", "records", len(submissions), "seconds", t2.Sub(t1).Seconds())

	out, err := json.MarshalIndent(submissions, "", "  ")
	if err != nil {
		serviceutil.Fatal("failed to serialize output", err)
	}
	err = os.WriteFile(*updateOut, out, 0644)
	if err != nil {
		serviceutil.Fatal("failed to write output file", err)
	}

	if *updateArchiveDb != "" {
		archive(ctx, *updateArchiveDb, submissions)
	}

	printSummary(submissions)
}

func archive(ctx context.Context, path string, submissions []tracker.Submission) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		serviceutil.Fatal("failed to open archive db", err)
	}
	defer database.Close()

	_, err = database.Exec(db.Schema)
	if err != nil {
		serviceutil.Fatal("failed to apply archive schema", err)
	}
	err = tracker.NewStore(database).Archive(ctx, timezone.Now(), submissions)
	if err != nil {
		serviceutil.Fatal("failed to archive run", err)
	}
}

func printSummary(submissions []tracker.Submission) {
	type key struct {
		platform string
		handle   string
	}
	counts := map[key]int{}
	var order []key
	for _, s := range submissions {
		k := key{platform: s.Platform, handle: s.Handle}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Platform", "Handle", "Records"})
	for _, k := range order {
		t.AppendRow(table.Row{k.platform, k.handle, counts[k]})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var updateCmd = &cobra.Command{
	Use:   "update [--config <path>] [--out <path>] [--archive-db <path>]",
	Short: "Runs one full ingestion pass and writes the canonical collection.",
	Run: func(cmd *cobra.Command, args []string) {
		update(cmd.Context())
	},
}
