package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"debugwand/internal/config"
	"debugwand/internal/container"
	"debugwand/internal/failure"
	"debugwand/internal/kube"
	"debugwand/internal/target"
	"debugwand/pkg/logging"
)

// targetFlags select what a command attaches to.
type targetFlags struct {
	namespace string
	service   string
	container string
}

func (f *targetFlags) register(cmd *cobra.Command, withContainer bool) {
	cmd.Flags().StringVarP(&f.namespace, "namespace", "n", "", "Kubernetes namespace of the service")
	cmd.Flags().StringVarP(&f.service, "service", "s", "", "Kubernetes service whose pods to target")
	if withContainer {
		cmd.Flags().StringVarP(&f.container, "container", "c", "", "Docker container name or ID (instead of --namespace/--service)")
	}
}

// validate enforces: either a container, or a namespace and service together.
func (f targetFlags) validate() error {
	switch {
	case f.container != "" && (f.namespace != "" || f.service != ""):
		return &failure.ValidationError{Field: "--container", Message: "cannot be combined with --namespace or --service"}
	case f.container != "":
		return nil
	case f.namespace == "" && f.service == "":
		return &failure.ValidationError{Message: "specify --namespace and --service, or --container"}
	case f.namespace == "":
		return &failure.ValidationError{Field: "--namespace", Message: "required together with --service"}
	case f.service == "":
		return &failure.ValidationError{Field: "--service", Message: "required together with --namespace"}
	}
	return nil
}

// serviceLabel names the workload in the launch configuration.
func (f targetFlags) serviceLabel() string {
	if f.container != "" {
		return f.container
	}
	return f.service
}

// loadSettings layers the config files, the environment and the global flags.
func loadSettings() (config.DebugwandConfig, config.Environment) {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Warn("CLI", "Ignoring configuration: %v", err)
		cfg = config.GetDefaultConfig()
	}
	if kubeContext != "" {
		cfg.Kubernetes.Context = kubeContext
	}
	if kubeconfigPath != "" {
		cfg.Kubernetes.Kubeconfig = kubeconfigPath
	}
	return cfg, config.ReadEnvironment(os.Getenv)
}

// For mocking in tests
var buildRuntime = func(f targetFlags, cfg config.DebugwandConfig) (target.Runtime, func(), error) {
	if f.container != "" {
		docker, err := container.NewDockerClient()
		if err != nil {
			return nil, nil, err
		}
		rt := container.NewRuntime(docker, f.container, cfg.Timeouts.Exec)
		return rt, func() { rt.Close() }, nil
	}

	if err := checkKubeContext(cfg.Kubernetes.Kubeconfig, cfg.Kubernetes.Context); err != nil {
		return nil, nil, err
	}
	rt, err := kube.NewPodRuntime(cfg.Kubernetes.Kubeconfig, cfg.Kubernetes.Context, f.namespace, f.service,
		kube.Options{ExecTimeout: cfg.Timeouts.Exec})
	if err != nil {
		return nil, nil, err
	}
	return rt, func() {}, nil
}

// checkKubeContext rejects an unknown --context before any API call and
// logs which context is in use.
func checkKubeContext(kubeconfig, name string) error {
	if name != "" {
		exists, err := kube.ContextExists(kubeconfig, name)
		if err != nil {
			return err
		}
		if !exists {
			return &failure.ValidationError{Field: "--context", Message: "context " + name + " not found in kubeconfig"}
		}
	}
	current, err := kube.GetCurrentKubeContext(kubeconfig, name)
	if err != nil {
		return err
	}
	logging.Debug("CLI", "Using kube context %s", current)
	return nil
}
