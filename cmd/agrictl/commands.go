package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/agrisentinel/agrisentinel/internal/modules/domains"
	"github.com/agrisentinel/agrisentinel/internal/modules/lending"
)

func newScoreCmd() *cobra.Command {
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "score <domain> <entity-id>",
		Short: "Score a snapshot against a domain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getCLIContext(cmd)
			snapshot, err := readSnapshot(cmd, snapshotPath)
			if err != nil {
				return err
			}
			score, err := c.Engine.Score(args[0], args[1], snapshot, time.Now().UTC())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if c.OutputFormat == "text" {
				fmt.Fprintf(out, "%s/%s: %.2f (%s)\n", score.Domain, score.EntityID, score.TotalScore, score.Rating)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, category := range sortedKeys(score.Breakdown) {
					fmt.Fprintf(tw, "  %s\t%.2f\n", category, score.Breakdown[category])
				}
				return tw.Flush()
			}
			return printJSON(out, score)
		},
	}
	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "-", "snapshot JSON file (- for stdin)")
	return cmd
}

func newTrendCmd() *cobra.Command {
	var (
		seriesPath string
		window     int
	)

	cmd := &cobra.Command{
		Use:   "trend <domain>",
		Short: "Analyze the direction of a time series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getCLIContext(cmd)
			series, err := readSeries(cmd, seriesPath)
			if err != nil {
				return err
			}
			var windowDays *int
			if cmd.Flags().Changed("window") {
				windowDays = &window
			}
			trend, err := c.Engine.Trend(args[0], series, windowDays)
			if err != nil {
				return err
			}

			if c.OutputFormat == "text" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %.2f%% over %d points (window %dd, volatility %.2f)\n",
					trend.Domain, trend.Direction, trend.ChangePercent, trend.Points, trend.WindowDays, trend.Volatility)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), trend)
		},
	}
	cmd.Flags().StringVarP(&seriesPath, "series", "f", "-", "series JSON file (- for stdin)")
	cmd.Flags().IntVarP(&window, "window", "w", 0, "window in days (domain default when unset)")
	return cmd
}

func newForecastCmd() *cobra.Command {
	var (
		seriesPath string
		horizon    int
	)

	cmd := &cobra.Command{
		Use:   "forecast <domain>",
		Short: "Project a time series forward with a linear fit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getCLIContext(cmd)
			series, err := readSeries(cmd, seriesPath)
			if err != nil {
				return err
			}
			var horizonDays *int
			if cmd.Flags().Changed("horizon") {
				horizonDays = &horizon
			}
			forecast, err := c.Engine.Forecast(args[0], series, horizonDays)
			if err != nil {
				return err
			}

			if c.OutputFormat == "text" {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "slope %.4f, intercept %.4f, confidence %.2f\n", forecast.Slope, forecast.Intercept, forecast.Confidence)
				for i, v := range forecast.PredictedValues {
					fmt.Fprintf(out, "  +%dd\t%.2f\n", i+1, v)
				}
				return nil
			}
			return printJSON(cmd.OutOrStdout(), forecast)
		},
	}
	cmd.Flags().StringVarP(&seriesPath, "series", "f", "-", "series JSON file (- for stdin)")
	cmd.Flags().IntVarP(&horizon, "horizon", "n", 0, "horizon in days (domain default when unset)")
	return cmd
}

func newEMICmd() *cobra.Command {
	var (
		principal string
		rate      float64
		tenure    int
		schedule  bool
	)

	cmd := &cobra.Command{
		Use:   "emi",
		Short: "Compute the monthly installment and totals for a loan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getCLIContext(cmd)
			p, err := decimal.NewFromString(principal)
			if err != nil {
				return fmt.Errorf("invalid principal %q: %w", principal, err)
			}
			terms, err := lending.CalculateTerms(p, rate, tenure, time.Now().UTC())
			if err != nil {
				return err
			}
			if !schedule {
				terms.Schedule = nil
			}

			if c.OutputFormat == "text" {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "EMI %s  total %s  interest %s\n",
					terms.MonthlyEMI.StringFixed(2), terms.TotalPayable.StringFixed(2), terms.TotalInterest.StringFixed(2))
				if schedule {
					tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "period\tdue\tprincipal\tinterest\tbalance")
					for _, inst := range terms.Schedule {
						fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", inst.Period, inst.DueDate.Format("2006-01-02"),
							inst.Principal.StringFixed(2), inst.Interest.StringFixed(2), inst.RemainingBalance.StringFixed(2))
					}
					return tw.Flush()
				}
				return nil
			}
			return printJSON(cmd.OutOrStdout(), terms)
		},
	}
	cmd.Flags().StringVarP(&principal, "principal", "p", "", "loan principal")
	cmd.Flags().Float64VarP(&rate, "rate", "r", 0, "annual interest rate in percent")
	cmd.Flags().IntVarP(&tenure, "tenure", "t", 12, "tenure in months")
	cmd.Flags().BoolVar(&schedule, "schedule", false, "include the amortization schedule")
	_ = cmd.MarkFlagRequired("principal")
	return cmd
}

func newValidateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config <dir>",
		Short: "Validate a directory of YAML domain configs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := domains.LoadFS(os.DirFS(args[0]), ".")
			if err != nil {
				return fmt.Errorf("invalid domain configs in %s: %w", args[0], err)
			}

			keys := registry.Keys()
			if getCLIContext(cmd).OutputFormat == "text" {
				fmt.Fprintf(cmd.OutOrStdout(), "%d domain(s) OK: %v\n", len(keys), keys)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"valid": true, "domains": keys})
		},
	}
}

type domainSummary struct {
	Key      string       `json:"key"`
	Kind     domains.Kind `json:"kind"`
	Name     string       `json:"name"`
	Gated    bool         `json:"gated"`
	HasTrend bool         `json:"has_trend"`
}

func newDomainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List the loaded domains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getCLIContext(cmd)
			all := c.Registry.All()
			summaries := make([]domainSummary, 0, len(all))
			for _, d := range all {
				summaries = append(summaries, domainSummary{
					Key:      d.Key,
					Kind:     d.Kind,
					Name:     d.Name,
					Gated:    d.Gated(),
					HasTrend: d.HasTrend(),
				})
			}

			if c.OutputFormat == "text" {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tKIND\tNAME")
				for _, s := range summaries {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Key, s.Kind, s.Name)
				}
				return tw.Flush()
			}
			return printJSON(cmd.OutOrStdout(), summaries)
		},
	}
}
