package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"debugwand/internal/failure"
	"debugwand/internal/process"
	"debugwand/internal/reporting"
	"debugwand/internal/selector"
	"debugwand/internal/target"
)

var (
	listTarget        targetFlags
	listWithProcesses bool
)

var listTargetsCmd = &cobra.Command{
	Use:     "list-targets",
	Aliases: []string{"ls"},
	Short:   "List the pods behind a service, or a container",
	Long: `Lists the pods selected by a Kubernetes service (or a single Docker
container) with their status and age. With --with-processes the Python
processes of every running target are listed too, each labelled with the
role debugwand would assign it (recommended, parent, worker, helper).`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return listTarget.validate()
	},
	RunE: runListTargets,
}

func init() {
	rootCmd.AddCommand(listTargetsCmd)
	listTarget.register(listTargetsCmd, true)
	listTargetsCmd.Flags().BoolVar(&listWithProcesses, "with-processes", false, "Also list the Python processes in every running target")
}

func runListTargets(cmd *cobra.Command, args []string) error {
	cfg, _ := loadSettings()
	rt, closeRuntime, err := buildRuntime(listTarget, cfg)
	if err != nil {
		return err
	}
	defer closeRuntime()
	return listTargets(cmd.Context(), rt, newReporter(), listWithProcesses, time.Now())
}

func listTargets(ctx context.Context, rt target.Runtime, rep reporting.Reporter, withProcesses bool, now time.Time) error {
	targets, err := rt.ListTargets(ctx)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return &failure.NoRunningTargetsError{Selector: rt.Describe()}
	}

	targets = target.SortNewestFirst(targets)
	rows := make([][]string, 0, len(targets))
	for _, t := range targets {
		location := t.NodeName
		if t.Kind == target.KindContainer && len(t.ID) >= 12 {
			location = t.ID[:12]
		}
		rows = append(rows, []string{t.Name, string(t.Status), selector.HumanAge(t.Age(now)), dashIfEmpty(location)})
	}
	rep.Table([]string{"Name", "Status", "Age", locationHeader(rt.Kind())}, rows)

	if !withProcesses {
		return nil
	}
	for _, t := range target.RunningOnly(targets) {
		ps, err := rt.ListProcesses(ctx, t)
		if err != nil {
			rep.Warn("Could not list processes in %s: %v", t, err)
			continue
		}
		rep.Step("Python processes in %s", t)
		if len(ps) == 0 {
			rep.Info("none")
			continue
		}
		prows := make([][]string, 0, len(ps))
		for _, p := range ps {
			prows = append(prows, []string{
				fmt.Sprint(p.PID),
				p.User,
				fmt.Sprintf("%.1f", p.CPU),
				fmt.Sprintf("%.1f", p.Mem),
				dashIfEmpty(string(process.Classify(p, ps))),
				reporting.Truncate(p.Command, 72),
			})
		}
		rep.Table([]string{"PID", "User", "CPU%", "Mem%", "Role", "Command"}, prows)
	}
	return nil
}

func locationHeader(k target.Kind) string {
	if k == target.KindContainer {
		return "ID"
	}
	return "Node"
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
