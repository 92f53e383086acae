package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/RMahshie/tinfoil/internal/app"
	"github.com/RMahshie/tinfoil/internal/config"
	"github.com/RMahshie/tinfoil/internal/repository/postgres"
	"github.com/RMahshie/tinfoil/internal/sampler"
	"github.com/RMahshie/tinfoil/pkg/models"
)

func newCheckDeviceCmd() *cobra.Command {
	var capture bool
	var mhz float64

	cmd := &cobra.Command{
		Use:   "check-device",
		Short: "Probe the receiver and optionally take one reading",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dev, _ := app.NewCapturer(cfg.Device)
			s := app.NewSampler(dev, cfg.Sampling)
			return checkDevice(cmd, s, capture, models.MHz(mhz))
		},
	}
	cmd.Flags().BoolVar(&capture, "capture", false, "take a test reading after the probe")
	cmd.Flags().Float64Var(&mhz, "mhz", 100, "frequency for the test reading in MHz")
	return cmd
}

type deviceChecker interface {
	EnsureReady(ctx context.Context) sampler.Availability
	Sample(ctx context.Context, f models.Frequency, repeatCount int) (float64, error)
}

func checkDevice(cmd *cobra.Command, s deviceChecker, capture bool, f models.Frequency) error {
	out := cmd.OutOrStdout()
	av := s.EnsureReady(cmd.Context())
	if !av.Available {
		fmt.Fprintln(out, "HackRF device not found.")
		return fmt.Errorf("device not available: %w", av.Err)
	}
	fmt.Fprintf(out, "HackRF One found (serial %s)\n", av.Serial)
	if !capture {
		return nil
	}

	start := time.Now()
	power, err := s.Sample(cmd.Context(), f, 1)
	if err != nil {
		return fmt.Errorf("test capture failed: %w", err)
	}
	fmt.Fprintf(out, "%s: %.2f dBm (%s)\n", formatHz(f), power, time.Since(start).Round(time.Millisecond))
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := app.OpenDB(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date.")
			return nil
		},
	}
}

func newPlanCmd() *cobra.Command {
	var count int
	var minMHz, maxMHz float64

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the frequency plan a session would measure",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("count") {
				cfg.Plan.Count = count
			}
			if cmd.Flags().Changed("min") {
				cfg.Plan.MinMHz = minMHz
			}
			if cmd.Flags().Changed("max") {
				cfg.Plan.MaxMHz = maxMHz
			}

			plan, err := app.BuildPlan(cfg.Plan)
			if err != nil {
				return err
			}
			return printPlan(cmd.OutOrStdout(), plan)
		},
	}
	cmd.Flags().IntVar(&count, "count", 20, "number of frequencies")
	cmd.Flags().Float64Var(&minMHz, "min", 1, "lowest frequency in MHz")
	cmd.Flags().Float64Var(&maxMHz, "max", 6000, "highest frequency in MHz")
	return cmd
}

func printPlan(w io.Writer, plan models.FrequencyPlan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFREQUENCY\tHZ\tLABEL")
	for i, pt := range plan {
		label := ""
		if pt.Label != nil {
			label = pt.Label.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, formatHz(pt.Frequency), humanize.Comma(int64(pt.Frequency)), label)
	}
	return tw.Flush()
}

func newLeaderboardCmd() *cobra.Command {
	var hatType string
	var all bool
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the leaderboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := models.LeaderboardFilter{AllTypes: all, Limit: limit}
			if hatType != "" {
				h, err := models.ParseHatType(hatType)
				if err != nil {
					return err
				}
				filter.HatType = h
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := app.OpenDB(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := postgres.NewPostgresLeaderboardRepository(db).Leaderboard(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printLeaderboard(cmd.OutOrStdout(), entries, time.Now())
		},
	}
	cmd.Flags().StringVar(&hatType, "hat-type", "", "only rank classic or hybrid hats")
	cmd.Flags().BoolVar(&all, "all-types", false, "rank each contestant's best per hat type")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum rows")
	return cmd
}

func printLeaderboard(w io.Writer, entries []models.LeaderboardEntry, now time.Time) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No results yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tHAT\tATTENUATION\tTESTED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f dB\t%s\n",
			humanize.Ordinal(e.Rank), e.Name, e.HatType, e.AverageAttenuation,
			humanize.RelTime(e.TestedAt, now, "ago", "from now"))
	}
	return tw.Flush()
}

// formatHz renders a frequency with an SI prefix, e.g. 2.4 GHz
func formatHz(f models.Frequency) string {
	v, prefix := humanize.ComputeSI(float64(f))
	return humanize.FtoaWithDigits(v, 3) + " " + prefix + "Hz"
}
