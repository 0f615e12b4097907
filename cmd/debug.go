package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"debugwand/internal/config"
	"debugwand/internal/failure"
	"debugwand/internal/injector"
	"debugwand/internal/portforwarding"
	"debugwand/internal/prompt"
	"debugwand/internal/reporting"
	"debugwand/internal/selector"
	"debugwand/internal/session"
	"debugwand/internal/target"
)

var (
	debugTarget          targetFlags
	debugPort            int
	debugPID             int
	debugAutoReconnect   bool
	debugNoAutoReconnect bool
	debugWait            bool
	debugRemoteRoot      string
	debugCopyConfig      bool
)

// For mocking in tests
var writeClipboard = clipboard.WriteAll

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Start a debug session against a pod or container",
	Long: `Injects debugpy into a running Python process and forwards its port to
localhost, then keeps watching the target until interrupted with Ctrl+C.

Process selection:
  - With --pid the given process is used as-is.
  - When PID 1 runs with --reload (uvicorn, flask), its worker is attached
    and re-injected automatically whenever it restarts.
  - A single application process is picked automatically; otherwise you are
    asked to choose.

If the target pod is replaced (rolling deploy, crash) the session waits for
a replacement and reattaches, unless --no-auto-reconnect is given.

Examples:
  debugwand debug -n prod -s checkout
  debugwand debug -c api --port 5680 --wait`,
	Args:    cobra.NoArgs,
	PreRunE: validateDebugFlags,
	RunE:    runDebug,
}

func init() {
	rootCmd.AddCommand(debugCmd)
	registerDebugFlags(debugCmd)
}

func registerDebugFlags(cmd *cobra.Command) {
	debugTarget.register(cmd, true)

	f := cmd.Flags()
	f.IntVarP(&debugPort, "port", "p", config.DefaultPort, "debugpy port, both in the target and on localhost")
	f.IntVar(&debugPID, "pid", 0, "Process ID to debug (default: auto-select)")
	f.BoolVar(&debugAutoReconnect, "auto-reconnect", true, "Reattach to a replacement when the target goes away")
	f.BoolVar(&debugNoAutoReconnect, "no-auto-reconnect", false, "End the session when the target goes away")
	f.BoolVar(&debugWait, "wait", false, "Pause the process until a debugger attaches")
	f.StringVar(&debugRemoteRoot, "remote-root", "", fmt.Sprintf("Application path inside the target, for path mappings (default %s)", config.DefaultRemoteRoot))
	f.BoolVar(&debugCopyConfig, "copy-config", false, "Copy the VS Code launch configuration to the clipboard")
}

func validateDebugFlags(cmd *cobra.Command, args []string) error {
	if err := debugTarget.validate(); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("auto-reconnect") && flags.Changed("no-auto-reconnect") && debugAutoReconnect && debugNoAutoReconnect {
		return &failure.ValidationError{Message: "--auto-reconnect and --no-auto-reconnect are mutually exclusive"}
	}
	if flags.Changed("port") && (debugPort < 1 || debugPort > 65535) {
		return &failure.ValidationError{Field: "--port", Message: fmt.Sprintf("%d is not a valid port", debugPort)}
	}
	if debugPID < 0 {
		return &failure.ValidationError{Field: "--pid", Message: "must be a positive process ID"}
	}
	return nil
}

// sessionConfig merges the loaded settings with the debug flags. Flags win.
func sessionConfig(cmd *cobra.Command, cfg config.DebugwandConfig, env config.Environment) session.Config {
	flags := cmd.Flags()

	port := cfg.Debug.Port
	if flags.Changed("port") || port == 0 {
		port = debugPort
	}
	remoteRoot := cfg.Debug.RemoteRoot
	if debugRemoteRoot != "" {
		remoteRoot = debugRemoteRoot
	}
	autoReconnect := cfg.Reconnect.AutoReconnect()
	switch {
	case flags.Changed("no-auto-reconnect") && debugNoAutoReconnect:
		autoReconnect = false
	case flags.Changed("auto-reconnect"):
		autoReconnect = debugAutoReconnect
	}

	return session.Config{
		Port:              port,
		Wait:              debugWait,
		ExplicitPID:       debugPID,
		AutoSelectTarget:  env.AutoSelectTarget,
		AutoReconnect:     autoReconnect,
		PollInterval:      cfg.Timeouts.PollInterval,
		ReconnectInterval: cfg.Reconnect.Interval,
		ReconnectTimeout:  cfg.Reconnect.Timeout,
		Settle:            cfg.Timeouts.Settle,
		Service:           debugTarget.serviceLabel(),
		RemoteRoot:        remoteRoot,
	}
}

func runDebug(cmd *cobra.Command, args []string) error {
	cfg, env := loadSettings()
	scfg := sessionConfig(cmd, cfg, env)

	rt, closeRuntime, err := buildRuntime(debugTarget, cfg)
	if err != nil {
		return err
	}
	defer closeRuntime()

	rep := newReporter()
	prompter := prompt.NewSurveyPrompter()
	inj := injector.New(rt, injector.Config{StagingDir: cfg.Debug.StagingDir, PythonBinary: cfg.Debug.PythonBinary})
	fwd := portforwarding.NewForwarder(rt, prompter, rep, cfg.Timeouts.ForwardGrace)

	ctrl := session.New(rt, selector.NewResolver(prompter, rep), inj, fwd, rep, scfg).
		WithHooks(session.Hooks{OnConnected: connectedHook(rep, scfg, debugCopyConfig)})
	return ctrl.Run(cmd.Context())
}

func connectedHook(rep reporting.Reporter, scfg session.Config, copyConfig bool) func(target.Target, int) {
	copied := false
	return func(t target.Target, pid int) {
		if copyConfig && !copied {
			launch, err := reporting.LaunchJSON(scfg.Port, scfg.Service, scfg.RemoteRoot)
			if err == nil {
				err = writeClipboard(launch)
			}
			if err != nil {
				rep.Warn("Could not copy the launch configuration: %v", err)
			} else {
				rep.Info("Launch configuration copied to the clipboard")
				copied = true
			}
		}
		rep.Info("Debugging PID %d in %s. Press Ctrl+C to end the session.", pid, t)
	}
}
