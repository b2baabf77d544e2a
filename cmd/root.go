package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"resumelift/internal/app"
	"resumelift/internal/config"
	"resumelift/internal/inputprocessor"
)

// skipAppAnnotation marks commands that run without a configured app.
const skipAppAnnotation = "resumelift/skip-app"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "resumelift",
	Short: "ResumeLift CLI",
	Long: `ResumeLift sends a resume and a job description to the ResumeLift analysis
backend, waking it first if it is asleep, and prints the analysis or a
classified error.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	// PersistentPreRunE runs before any subcommand's RunE
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Annotations[skipAppAnnotation] == "true" {
			return nil
		}

		cfg, err := config.LoadConfig(config.LoadOptions{
			ConfigFile: cfgFile,
			Flags:      cmd.Flags(),
		})
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if err := config.SetupLogging(cfg); err != nil {
			return err
		}

		appInstance, err := app.NewApp(cmd.Context(), cfg, inputprocessor.New(nil))
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		ctx := context.WithValue(cmd.Context(), appKey, appInstance)
		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appInstance, err := GetAppFromContext(cmd.Context()); err == nil {
			appInstance.Close()
		}
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which aborts an in-flight analysis and stops the server.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

type contextKey string

const appKey contextKey = "app"

// GetAppFromContext returns the app stored by PersistentPreRunE.
func GetAppFromContext(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application instance not found in context")
	}
	return appInstance, nil
}

// Version is set at build time with -ldflags "-X resumelift/cmd.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the resumelift version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "resumelift", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or ~/.config/resumelift/config.yaml)")
	rootCmd.PersistentFlags().String("base-url", "", "analysis backend base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
}
