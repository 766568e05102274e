package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"signal-gateway/internal/advisor"
	"signal-gateway/internal/db"
	"signal-gateway/internal/domain"
	"signal-gateway/internal/handler"
	"signal-gateway/internal/profile"
	"signal-gateway/internal/repository"
	"signal-gateway/internal/service"
	"signal-gateway/internal/ta"
	"signal-gateway/internal/validate"
	"signal-gateway/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	newLLMClientFunc = advisor.NewOpenAIClient
	nowFunc          = time.Now
	openPoolFunc     = func(ctx context.Context, dsn string) (repository.MigrationPool, func(), error) {
		pool, err := db.InitPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return pool, pool.Close, nil
	}
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type profileFlags struct {
	name string
	file string
	hour int
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "profile", envOr("SIGNAL_PROFILE", "standard"), "Built-in rule profile")
	cmd.Flags().StringVar(&f.file, "profile-file", os.Getenv("SIGNAL_PROFILE_FILE"), "YAML profile, overrides --profile")
	cmd.Flags().IntVar(&f.hour, "hour", -1, "UTC hour used for session classification (default: now)")
}

func (f *profileFlags) load() (profile.Profile, error) {
	return profile.Load(f.name, f.file)
}

func (f *profileFlags) now() time.Time {
	now := nowFunc().UTC()
	if f.hour < 0 || f.hour > 23 {
		return now
	}
	return time.Date(now.Year(), now.Month(), now.Day(), f.hour, 0, 0, 0, time.UTC)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "signalctl",
		Short:        "Run market snapshots through the signal pipeline",
		SilenceUsage: true,
	}
	root.AddCommand(newAnalyzeCmd(), newPromptCmd(), newProfilesCmd(), newMigrateCmd())
	return root
}

func newAnalyzeCmd() *cobra.Command {
	var (
		pf      profileFlags
		file    string
		offline bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify one snapshot and print the response JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.load()
			if err != nil {
				return err
			}
			req, err := readRequest(cmd, file)
			if err != nil {
				return err
			}

			var llm advisor.LLMClient
			if key := os.Getenv("OPENAI_API_KEY"); key != "" && !offline {
				llm = newLLMClientFunc(key, os.Getenv("OPENAI_BASE_URL"))
			}
			tracer := noop.NewTracerProvider().Tracer("signalctl")
			log, err := logger.New(logger.Config{
				Level:  envOr("LOG_LEVEL", "warn"),
				Format: "console",
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}

			svc, err := service.NewSignalService(tracer, p, service.Deps{
				Gateway: advisor.NewGateway(tracer, llm, advisor.GatewayConfig{
					Model:   envOr("OPENAI_MODEL", ""),
					Timeout: timeout,
				}),
				Logger: log,
				Now:    pf.now,
			})
			if err != nil {
				return err
			}

			res, err := svc.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			resp := handler.SignalResponse{Signal: res.Signal.Action, Explanation: res.Signal.Explanation}
			if p.IncludeConfidence {
				resp.Confidence = res.Signal.Confidence
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Snapshot JSON file, - for stdin")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the model and use the fallback rule")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Model call timeout")
	return cmd
}

func newPromptCmd() *cobra.Command {
	var (
		pf   profileFlags
		file string
	)
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the model prompt for one snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.load()
			if err != nil {
				return err
			}
			req, err := readRequest(cmd, file)
			if err != nil {
				return err
			}
			v, err := validate.New(p)
			if err != nil {
				return err
			}
			snap, err := v.Snapshot(req)
			if err != nil {
				return err
			}
			derived := ta.Derive(snap, pf.now().Hour(), p.Thresholds)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), advisor.BuildPrompt(snap, derived, p))
			return err
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Snapshot JSON file, - for stdin")
	return cmd
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles [NAME]",
		Short: "Print built-in rule profiles as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := profile.Names()
			if len(args) == 1 {
				names = args
			}
			for i, name := range names {
				p, err := profile.Load(name, "")
				if err != nil {
					return err
				}
				raw, err := profile.Marshal(p)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "---")
				}
				if _, err := cmd.OutOrStdout().Write(raw); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the decision audit log schema (needs DATABASE_URL)",
	}

	withMigrator := func(run func(ctx context.Context, m *repository.Migrator, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			dsn := os.Getenv("DATABASE_URL")
			if dsn == "" {
				return errors.New("DATABASE_URL is required")
			}
			pool, closePool, err := openPoolFunc(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer closePool()
			m, err := repository.NewMigrator(pool)
			if err != nil {
				return err
			}
			return run(cmd.Context(), m, cmd.OutOrStdout())
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(ctx context.Context, m *repository.Migrator, out io.Writer) error {
			n, err := m.Up(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "migrations up complete (%d applied)\n", n)
			return err
		}),
	})

	down := &cobra.Command{
		Use:   "down [STEPS]",
		Short: "Roll back the newest migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
	}
	down.RunE = func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid down steps: %q", args[0])
			}
			steps = n
		}
		return withMigrator(func(ctx context.Context, m *repository.Migrator, out io.Writer) error {
			n, err := m.Down(ctx, steps)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "migrations down complete (%d rolled back)\n", n)
			return err
		})(cmd, args)
	}
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the newest applied migration",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(ctx context.Context, m *repository.Migrator, out io.Writer) error {
			v, err := m.Version(ctx)
			if err != nil {
				return err
			}
			if v == 0 {
				_, err = fmt.Fprintln(out, "no migrations applied")
				return err
			}
			_, err = fmt.Fprintf(out, "current version: %d\n", v)
			return err
		}),
	})
	return cmd
}

func readRequest(cmd *cobra.Command, path string) (*domain.SignalRequest, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return validate.Decode(r)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
