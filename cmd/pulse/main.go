package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/Pulse/internal/config"
	"github.com/TobiSchelling/Pulse/internal/database"
	"github.com/TobiSchelling/Pulse/internal/llm"
	"github.com/TobiSchelling/Pulse/internal/logging"
	"github.com/TobiSchelling/Pulse/internal/pipeline"
	"github.com/TobiSchelling/Pulse/internal/server"
	"github.com/TobiSchelling/Pulse/internal/window"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "pulse",
	Short:   "Behavioral context synthesis",
	Long:    "Pulse reads personal activity rollups (tasks, tracked time, habits, steps) and condenses them into a bounded context for narrative progress summaries.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(database.DefaultRegistry().Names()); err != nil {
			return fmt.Errorf("invalid config %s: %w", path, err)
		}

		logger, err = logging.New(cfg.Logging.Level, verbose)
		if err != nil {
			return err
		}
		logger.Debug("config loaded", zap.String("path", path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(initDBCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(focusCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("pulse", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/pulse/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point at your database and narrative endpoint.")
		return nil
	},
}

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create or upgrade the source tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return err
		}
		fmt.Printf("Database ready: %s\n", db.Path())
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which sources have data",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		statuses, err := db.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading status: %w", err)
		}

		fmt.Printf("Today: %s\n", window.FormatDate(window.Today()))
		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Sources:")
		enabled := make(map[string]bool, len(cfg.Sources))
		for _, s := range cfg.Sources {
			enabled[s] = true
		}
		for _, st := range statuses {
			mark := " "
			if enabled[st.Name] {
				mark = "*"
			}
			if st.Present {
				fmt.Printf("  %s %-12s %d rows\n", mark, st.Name, st.Rows)
			} else {
				fmt.Printf("  %s %-12s missing: %s\n", mark, st.Name, strings.Join(st.Missing, ", "))
			}
		}
		return nil
	},
}

func addPeriodFlag(cmd *cobra.Command, def window.Period) {
	cmd.Flags().StringP("period", "p", string(def), "Period: last_month, last_90_days or last_12_months")
}

func periodFlag(cmd *cobra.Command) (window.Period, error) {
	raw, err := cmd.Flags().GetString("period")
	if err != nil {
		return "", err
	}
	return window.ParsePeriod(raw)
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print the serialized context for a period",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := periodFlag(cmd)
		if err != nil {
			return err
		}
		return withPipeline(cmd.Context(), func(ctx context.Context, pipe *pipeline.Pipeline) error {
			c, err := pipe.BuildContext(ctx, p, window.Today())
			if err != nil {
				return err
			}
			fmt.Println(c.Text)
			return nil
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Generate a progress summary for a period",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := periodFlag(cmd)
		if err != nil {
			return err
		}
		return withPipeline(cmd.Context(), func(ctx context.Context, pipe *pipeline.Pipeline) error {
			ans, err := pipe.ProgressSummary(ctx, p, window.Today())
			if err != nil {
				return err
			}
			fmt.Println(ans.Text)
			return nil
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask a question against the context",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := periodFlag(cmd)
		if err != nil {
			return err
		}
		question := strings.Join(args, " ")
		return withPipeline(cmd.Context(), func(ctx context.Context, pipe *pipeline.Pipeline) error {
			ans, err := pipe.Ask(ctx, question, p, window.Today())
			if err != nil {
				return err
			}
			fmt.Println(ans.Text)
			return nil
		})
	},
}

var focusCmd = &cobra.Command{
	Use:   "focus <topic...>",
	Short: "Focused cross-source summary for a topic, e.g. 'learning Portuguese'",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := periodFlag(cmd)
		if err != nil {
			return err
		}
		topic := strings.Join(args, " ")
		return withPipeline(cmd.Context(), func(ctx context.Context, pipe *pipeline.Pipeline) error {
			ans, err := pipe.Focus(ctx, topic, p, window.Today())
			if err != nil {
				return err
			}
			fmt.Println(ans.Text)
			return nil
		})
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		srv, err := server.New(newPipeline(db), db, logger)
		if err != nil {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, srv, port)
	},
}

func init() {
	addPeriodFlag(contextCmd, window.LastMonth)
	addPeriodFlag(summaryCmd, window.LastMonth)
	addPeriodFlag(askCmd, window.Last12Months)
	addPeriodFlag(focusCmd, window.Last90)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on (overrides config)")
}

func withPipeline(ctx context.Context, fn func(context.Context, *pipeline.Pipeline) error) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, newPipeline(db))
}

func newPipeline(db *database.DB) *pipeline.Pipeline {
	l := cfg.LLM
	client := llm.NewChatClient(llm.Options{
		BaseURL:     l.BaseURL,
		Model:       l.Model,
		APIKeyEnv:   l.APIKeyEnv,
		Temperature: l.Temperature,
		MaxTokens:   l.MaxTokens,
		Timeout:     l.Timeout(),
		MinInterval: l.MinInterval(),
	}, logger)
	return pipeline.New(cfg, db, client, logger)
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.GetDatabasePath(), logger)
}
