package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/agrisentinel/agrisentinel/internal/domain"
	"github.com/agrisentinel/agrisentinel/internal/modules/domains"
	"github.com/agrisentinel/agrisentinel/internal/modules/evaluation"
)

// Build-time variables injected via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type cliContextKey struct{}

// rootOptions holds global flags
type rootOptions struct {
	DomainsDir   string
	OutputFormat string
}

// cliContext carries the loaded registry through the command tree
type cliContext struct {
	Engine       *evaluation.Engine
	Registry     *domains.Registry
	OutputFormat string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "agrictl",
		Short:   "Offline scoring, trend and loan arithmetic for the decision engine",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.DomainsDir, "domains-dir", os.Getenv("DOMAIN_CONFIG_DIR"), "directory of YAML domain configs overriding the built-in set")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "json", "output format (json, text)")

	cmd.AddCommand(
		newScoreCmd(),
		newTrendCmd(),
		newForecastCmd(),
		newEMICmd(),
		newValidateConfigCmd(),
		newDomainsCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *rootOptions) error {
	if opts.OutputFormat != "json" && opts.OutputFormat != "text" {
		return fmt.Errorf("invalid output format: %s (must be json or text)", opts.OutputFormat)
	}

	// validate-config loads its own directory and must not fail on a broken override dir
	if cmd.Name() == "validate-config" {
		cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, &cliContext{OutputFormat: opts.OutputFormat}))
		return nil
	}

	registry, err := domains.LoadDefault(opts.DomainsDir)
	if err != nil {
		return err
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, &cliContext{
		Engine:       evaluation.NewEngine(registry),
		Registry:     registry,
		OutputFormat: opts.OutputFormat,
	}))
	return nil
}

func getCLIContext(cmd *cobra.Command) *cliContext {
	if c, ok := cmd.Context().Value(cliContextKey{}).(*cliContext); ok {
		return c
	}
	return &cliContext{OutputFormat: "json"}
}

// printJSON writes v indented
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads a file, or stdin for "-"
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func readSnapshot(cmd *cobra.Command, path string) (domain.Snapshot, error) {
	raw, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	var snapshot domain.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("invalid snapshot JSON: %w", err)
	}
	if len(snapshot) == 0 {
		return nil, domain.NewInputError("snapshot", "must not be empty")
	}
	return snapshot, nil
}

// readSeries accepts a bare array of points or an object with a "points" array
func readSeries(cmd *cobra.Command, path string) ([]domain.TimeSeriesPoint, error) {
	raw, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	var points []domain.TimeSeriesPoint
	if err := json.Unmarshal(raw, &points); err == nil {
		return points, nil
	}
	var wrapped struct {
		Points []domain.TimeSeriesPoint `json:"points"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("invalid series JSON: %w", err)
	}
	return wrapped.Points, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
