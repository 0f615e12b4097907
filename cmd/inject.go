package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"debugwand/internal/failure"
	"debugwand/internal/injector"
	"debugwand/internal/prompt"
	"debugwand/internal/reporting"
	"debugwand/internal/selector"
	"debugwand/internal/target"
)

var (
	injectTarget targetFlags
	injectScript string
	injectPID    int
)

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Run a local Python script inside a live process once",
	Long: `Copies a local Python script into the selected target and executes it
inside the chosen process with sys.remote_exec. The script runs in the
process's main thread at its next opportunity; its output goes to the
process's own stdout and stderr.

No session is kept: the command returns once the script is scheduled.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := injectTarget.validate(); err != nil {
			return err
		}
		if injectScript == "" {
			return &failure.ValidationError{Field: "--script", Message: "a script path is required"}
		}
		if injectPID < 0 {
			return &failure.ValidationError{Field: "--pid", Message: "must be a positive process ID"}
		}
		return nil
	},
	RunE: runInject,
}

func init() {
	rootCmd.AddCommand(injectCmd)
	injectTarget.register(injectCmd, true)
	injectCmd.Flags().StringVar(&injectScript, "script", "", "Path of the local Python script to run")
	injectCmd.Flags().IntVar(&injectPID, "pid", 0, "Process ID to inject into (default: auto-select)")
}

type scriptInjector interface {
	InjectScript(ctx context.Context, t target.Target, pid int, localScript string) (injector.Result, error)
}

func runInject(cmd *cobra.Command, args []string) error {
	cfg, env := loadSettings()
	rt, closeRuntime, err := buildRuntime(injectTarget, cfg)
	if err != nil {
		return err
	}
	defer closeRuntime()

	rep := newReporter()
	resolver := selector.NewResolver(prompt.NewSurveyPrompter(), rep)
	inj := injector.New(rt, injector.Config{StagingDir: cfg.Debug.StagingDir, PythonBinary: cfg.Debug.PythonBinary})
	return injectOnce(cmd.Context(), rt, resolver, inj, rep, env.AutoSelectTarget, injectPID, injectScript)
}

func injectOnce(ctx context.Context, rt target.Runtime, resolver *selector.Resolver, inj scriptInjector, rep reporting.Reporter, autoSelect bool, pid int, script string) error {
	targets, err := rt.ListTargets(ctx)
	if err != nil {
		return err
	}
	t, err := resolver.SelectTarget(targets, autoSelect, rt.Describe())
	if err != nil {
		return err
	}
	ps, err := rt.ListProcesses(ctx, t)
	if err != nil {
		return err
	}
	pid, err = resolver.ResolvePID(ps, t.String(), selector.Options{ExplicitPID: pid})
	if err != nil {
		return err
	}

	rep.Step("Injecting %s into PID %d in %s", script, pid, t)
	res, err := inj.InjectScript(ctx, t, pid, script)
	if err != nil {
		return err
	}
	if out := strings.TrimSpace(res.Output); out != "" {
		rep.Info("%s", out)
	}
	rep.Success("Script scheduled in PID %d", pid)
	return nil
}
