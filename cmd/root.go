package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"debugwand/internal/config"
	"debugwand/internal/prompt"
	"debugwand/internal/reporting"
	"debugwand/pkg/logging"
)

// Global flags shared by every subcommand.
var (
	kubeContext    string
	kubeconfigPath string
	logLevel       string
	plainOutput    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "debugwand",
	Short: "Attach a Python debugger to a running pod or container",
	Long: `debugwand injects debugpy into a live Python process running in a
Kubernetes pod or a Docker container, forwards the debug port to localhost
and keeps the session alive across worker reloads and pod replacements.

The target process is not restarted. Attaching requires the SYS_PTRACE
capability in the target; run 'debugwand validate' to check for it.`,
	// Errors are printed by Execute together with their remediation hint.
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "debugwand version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if errors.Is(err, prompt.ErrCancelled) {
		return
	}
	if err != nil {
		newReporter().Error(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&kubeContext, "context", "", "Kubernetes context to use (default: current context)")
	rootCmd.PersistentFlags().StringVar(&kubeconfigPath, "kubeconfig", "", "Path to the kubeconfig file (default: $KUBECONFIG or ~/.kube/config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", fmt.Sprintf("Diagnostic log level: debug, info, warn, error (env %s)", config.EnvLogLevel))
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, fmt.Sprintf("Plain, log-friendly output without colors (env %s)", config.EnvPlain))

	rootCmd.AddCommand(newVersionCmd())
}

func initLogging() error {
	level := logLevel
	if level == "" {
		level = config.ReadEnvironment(os.Getenv).LogLevel
	}
	parsed, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	logging.InitForCLI(parsed, os.Stderr)
	return nil
}

// newReporter builds the user-facing output sink for this invocation.
func newReporter() reporting.Reporter {
	env := config.ReadEnvironment(os.Getenv)
	mode := reporting.DetectMode(plainOutput || env.Plain, os.Stderr, os.Getenv)
	return reporting.NewConsoleReporter(os.Stdout, os.Stderr, mode)
}
