// Package main provides the CLI entry point for cashreport.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/ukaji3/cashreport-go/internal/config"
	"github.com/ukaji3/cashreport-go/internal/delivery"
	"github.com/ukaji3/cashreport-go/internal/log"
	"github.com/ukaji3/cashreport-go/internal/pipeline"
	"github.com/ukaji3/cashreport-go/internal/state"
	"github.com/ukaji3/cashreport-go/pkg/cashreport"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/numtext"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/output"
	"github.com/ukaji3/cashreport-go/pkg/cashreport/report"
)

var (
	outputPath    string
	pretty        bool
	asJSON        bool
	layoutPath    string
	preferFormula bool
)

func main() {
	// Load .env file for local development (ignore errors in production)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "cashreport",
		Short: "Extract daily cash totals from xlsx reports",
		Long: `cashreport reads the day-slots of operator-submitted xlsx reports,
resolves their totals (including SUM formulas) and renders the daily summary.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&layoutPath, "layout", "", "TOML day-slot layout file (default: built-in layout)")
	rootCmd.PersistentFlags().BoolVar(&preferFormula, "prefer-formula", false, "Evaluate formulas before cached values")

	extractCmd := &cobra.Command{
		Use:   "extract [input.xlsx]",
		Short: "Print the summary of one document",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}
	extractCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().BoolVar(&asJSON, "json", false, "Write the report as JSON")
	extractCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	resolveCmd := &cobra.Command{
		Use:   "resolve [input.xlsx] [cell]",
		Short: "Resolve one cell to a number",
		Args:  cobra.ExactArgs(2),
		RunE:  runResolve,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process new documents in the staging directory once",
		Args:  cobra.NoArgs,
		RunE:  runOnce,
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Process the staging directory on every poll interval",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}

	rootCmd.AddCommand(extractCmd, resolveCmd, runCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func extractOptions(path string) (cashreport.Options, error) {
	opts := cashreport.DefaultOptions()
	if path != "" {
		layout, err := report.LoadLayout(path)
		if err != nil {
			return opts, err
		}
		opts.Layout = &layout
	}
	if preferFormula {
		opts.PreferFormula = &preferFormula
	}
	return opts, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	opts, err := extractOptions(layoutPath)
	if err != nil {
		return err
	}

	rep, err := cashreport.Extract(args[0], opts)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	var data []byte
	if asJSON {
		data, err = output.ToJSON(rep, pretty)
		if err != nil {
			return fmt.Errorf("serialization failed: %w", err)
		}
		data = append(data, '\n')
	} else {
		body, _ := report.Render(rep.Summaries, report.Carry{})
		if body != "" {
			body += "\n"
		}
		for _, issue := range rep.Issues {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s (%s): %s\n", issue.Cell, issue.Field, issue.Message)
		}
		data = []byte(body)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runResolve(cmd *cobra.Command, args []string) error {
	opts, err := extractOptions("")
	if err != nil {
		return err
	}
	v, err := cashreport.Resolve(args[0], args[1], opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), numtext.Format(v))
	return nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	return withRunner(cmd, func(ctx context.Context, runner *pipeline.Runner, cfg *config.Config, logger *log.Logger) error {
		res, err := runner.RunOnce(ctx)
		if err != nil {
			return err
		}
		logger.Info("Pass complete",
			log.FieldCount, res.Scanned,
			"reported", res.Reported,
			"empty", res.Empty,
			"skipped", res.Skipped,
			"failed", res.Failed)
		return nil
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	return withRunner(cmd, func(ctx context.Context, runner *pipeline.Runner, cfg *config.Config, logger *log.Logger) error {
		logger.Info("Watching staging directory",
			"dir", cfg.StagingDir,
			"interval", cfg.PollInterval)
		err := runner.Watch(ctx, cfg.PollInterval)
		if ctx.Err() != nil {
			logger.Info("Shutdown signal received")
			return nil
		}
		return err
	})
}

// withRunner wires configuration, state and delivery into a Runner and calls
// fn with a context cancelled on SIGINT or SIGTERM.
func withRunner(cmd *cobra.Command, fn func(context.Context, *pipeline.Runner, *config.Config, *log.Logger) error) error {
	cfg := config.Load()
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    cmd.ErrOrStderr(),
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}

	layoutFile := cfg.LayoutFile
	if layoutPath != "" {
		layoutFile = layoutPath
	}
	opts, err := extractOptions(layoutFile)
	if err != nil {
		return err
	}

	store, err := state.Open(cfg.DBPath, report.Carry{
		Vouchers: cfg.OpeningVouchers,
		FlowBase: cfg.OpeningFlow,
	})
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer store.Close()

	sender, closeSender, err := newSender(cfg, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	defer closeSender()

	runner := pipeline.New(pipeline.Config{
		Dir:         cfg.StagingDir,
		Destination: cfg.Destination,
		Workers:     cfg.Workers,
		Options:     opts,
	}, store, sender, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return fn(ctx, runner, cfg, logger)
}

func newSender(cfg *config.Config, w io.Writer, logger *log.Logger) (delivery.Sender, func(), error) {
	if cfg.Delivery != config.DeliveryAMQP {
		return delivery.NewLogSender(w, logger), func() {}, nil
	}
	sender, err := delivery.NewAMQPSender(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect AMQP: %w", err)
	}
	return sender, func() { sender.Close() }, nil
}
