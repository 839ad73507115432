package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/schedsim/internal/config"
	"github.com/me/schedsim/internal/logging"
	"github.com/me/schedsim/internal/sched"
	"github.com/me/schedsim/internal/sim"
	"github.com/me/schedsim/internal/store"
	"github.com/me/schedsim/internal/tracing"
	"github.com/me/schedsim/internal/workload"
	"github.com/me/schedsim/pkg/model"
)

const scriptPolicy = "script"

func newRunCmd() *cobra.Command {
	var (
		configFile string
		policy     string
		script     string
		maxTicks   int
		quiet      bool
		dump       bool
		noCheck    bool
		save       bool
		dbPath     string
		traceFile  string
	)

	cmd := &cobra.Command{
		Use:   "run <workload.yaml>",
		Short: "Simulate a workload locally",
		Long: `Run parses the workload, simulates it tick by tick under the chosen
policy, and prints the timeline followed by per-process statistics.
The command fails if the run hits a protocol violation, a broken
invariant, or the tick limit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultSimConfig()
			if configFile != "" {
				loaded, err := config.LoadSimConfig(configFile)
				if err != nil {
					return err
				}
				cfg = loaded
				rootFlags := cmd.Root().PersistentFlags()
				if !rootFlags.Changed("log-level") && !flagDebug {
					logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())
				}
			}

			flags := cmd.Flags()
			if flags.Changed("policy") {
				cfg.Policy = policy
			}
			if flags.Changed("script") {
				cfg.Script = script
			}
			if flags.Changed("max-ticks") {
				cfg.MaxTicks = maxTicks
			}
			if flags.Changed("quiet") {
				cfg.Quiet = quiet
			}
			if flags.Changed("dump") {
				cfg.Dump = dump
			}
			if flags.Changed("no-check") {
				cfg.CheckInvariants = !noCheck
			}
			if flags.Changed("db") {
				cfg.DBPath = dbPath
			}
			if save && cfg.DBPath == "" {
				cfg.DBPath = config.DefaultDBPath()
			}
			if flags.Changed("trace-file") {
				cfg.TraceFile = traceFile
			}
			cfg.Policy = strings.ToLower(cfg.Policy)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if cfg.TraceFile != "" {
				if err := tracing.Init("schedsim", "cli", cfg.TraceFile); err != nil {
					return fmt.Errorf("init tracing: %w", err)
				}
				defer func() {
					if err := tracing.Shutdown(context.Background()); err != nil {
						logger.Warn("tracing shutdown failed", "error", err)
					}
				}()
			}

			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read workload: %w", err)
			}
			wl, err := workload.Load(args[0])
			if err != nil {
				return err
			}

			p, err := resolvePolicy(cfg)
			if err != nil {
				return err
			}

			run, runErr := simulate(ctx, cmd, wl, p, cfg)
			if run == nil {
				return runErr
			}
			run.Source = string(source)
			printSummary(cmd.OutOrStdout(), run)

			if cfg.DBPath != "" {
				if err := saveRun(ctx, cfg.DBPath, run); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nSaved run %s to %s\n", run.ID, cfg.DBPath)
			}

			if errors.Is(runErr, sim.ErrTickLimit) {
				return fmt.Errorf("%w (deadlock or starvation?)", runErr)
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML run configuration file")
	cmd.Flags().StringVarP(&policy, "policy", "p", "fcfs", "Scheduling policy (see 'schedsim policies')")
	cmd.Flags().StringVar(&script, "script", "", "Key expression for --policy script (smaller runs first)")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", config.DefaultMaxTicks, "Stop after this many ticks")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress the per-tick timeline")
	cmd.Flags().BoolVar(&dump, "dump", false, "Print the scheduler state after every tick")
	cmd.Flags().BoolVar(&noCheck, "no-check", false, "Skip the per-tick invariant checks")
	cmd.Flags().BoolVar(&save, "save", false, "Store the run in the local database")
	cmd.Flags().StringVar(&dbPath, "db", "", "Run database path (implies --save)")
	cmd.Flags().StringVar(&traceFile, "trace-file", "", "Write OpenTelemetry spans to this file")

	return cmd
}

// resolvePolicy builds the scheduler named by cfg.
func resolvePolicy(cfg config.SimConfig) (sched.Scheduler, error) {
	if cfg.Policy == scriptPolicy {
		p, err := sched.NewScript(cfg.Script)
		if err != nil {
			return nil, fmt.Errorf("script policy: %w", err)
		}
		return p, nil
	}
	return sched.NewDefaultRegistry(logger).Get(cfg.Policy)
}

// simulate runs wl and streams the timeline to the command output.
func simulate(ctx context.Context, cmd *cobra.Command, wl *workload.Workload, p sched.Scheduler, cfg config.SimConfig) (*model.Run, error) {
	out := cmd.OutOrStdout()
	names := make(map[int]string)

	simCfg := sim.Config{
		Policy:          cfg.Policy,
		MaxTicks:        cfg.MaxTicks,
		CheckInvariants: cfg.CheckInvariants,
	}
	if !cfg.Quiet || cfg.Dump {
		simCfg.Observer = func(rec model.TickRecord, c *sched.Context) {
			if !cfg.Quiet {
				printTick(out, rec, names[rec.PID])
			}
			if cfg.Dump {
				if err := sim.Dump(out, c); err != nil {
					logger.Warn("dump failed", "tick", rec.Tick, "error", err)
				}
			}
		}
	}

	s, err := sim.New(wl, p, simCfg, logger)
	if err != nil {
		return nil, err
	}
	for _, proc := range s.Processes() {
		names[proc.ID] = proc.Name
	}
	return s.Run(ctx)
}

// openStore opens and migrates the SQLite run database at path.
func openStore(ctx context.Context, path string) (store.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return st, nil
}

func saveRun(ctx context.Context, path string, run *model.Run) error {
	st, err := openStore(ctx, path)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}
