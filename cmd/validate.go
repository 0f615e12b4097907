package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"debugwand/internal/capability"
	"debugwand/internal/failure"
	"debugwand/internal/reporting"
	"debugwand/internal/target"
)

var validateTarget targetFlags

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that targets have the SYS_PTRACE capability",
	Long: `Checks every running pod of a service (or a container) for the
CAP_SYS_PTRACE capability that attaching a debugger needs, and prints the
configuration change to make where it is missing.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateTarget.validate()
	},
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateTarget.register(validateCmd, true)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, _ := loadSettings()
	rt, closeRuntime, err := buildRuntime(validateTarget, cfg)
	if err != nil {
		return err
	}
	defer closeRuntime()
	return validateTargets(cmd.Context(), rt, newReporter())
}

func validateTargets(ctx context.Context, rt target.Runtime, rep reporting.Reporter) error {
	targets, err := rt.ListTargets(ctx)
	if err != nil {
		return err
	}
	running := target.RunningOnly(targets)
	if len(running) == 0 {
		return &failure.NoRunningTargetsError{Selector: rt.Describe()}
	}

	var missing []string
	for _, t := range running {
		check, err := capability.CheckPtrace(ctx, rt, t)
		if err != nil {
			rep.Warn("%s: %v", t.Name, err)
			continue
		}
		switch check.Result {
		case capability.Present:
			rep.Success("%s: CAP_SYS_PTRACE present (%s)", t.Name, check.Source)
		case capability.Missing:
			rep.Warn("%s: CAP_SYS_PTRACE missing (%s)", t.Name, check.Detail)
			missing = append(missing, t.Name)
		default:
			rep.Warn("%s: could not determine capabilities, neither capsh nor /proc/1/status were readable", t.Name)
		}
	}

	if len(missing) > 0 {
		return &failure.PermissionError{
			TargetKind: failure.TargetKind(rt.Kind()),
			Output:     fmt.Sprintf("missing in %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}
