package kube

import (
	"fmt"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/clientcmd/api"
)

// clientConfigFor builds a deferred-loading client config. An empty
// kubeconfig path uses the default loading rules (KUBECONFIG, ~/.kube/config);
// an empty context uses the kubeconfig's current context.
func clientConfigFor(kubeconfig, kubeContext string) clientcmd.ClientConfig {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}
	configOverrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, configOverrides)
}

// RESTConfig returns the REST config for the given kubeconfig and context.
var RESTConfig = func(kubeconfig, kubeContext string) (*rest.Config, error) {
	restConfig, err := clientConfigFor(kubeconfig, kubeContext).ClientConfig()
	if err != nil {
		if kubeContext != "" {
			return nil, fmt.Errorf("failed to get REST config for context %q: %w", kubeContext, err)
		}
		return nil, fmt.Errorf("failed to get REST config: %w", err)
	}
	return restConfig, nil
}

// GetCurrentKubeContext returns the context that will be used: the override
// when set, otherwise the kubeconfig's current context.
var GetCurrentKubeContext = func(kubeconfig, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	raw, err := GetStartingConfig(kubeconfig)
	if err != nil {
		return "", err
	}
	if raw.CurrentContext == "" {
		return "", fmt.Errorf("current kubeconfig context is not set")
	}
	return raw.CurrentContext, nil
}

// GetStartingConfig returns the merged kubeconfig.
func GetStartingConfig(kubeconfig string) (*api.Config, error) {
	raw, err := clientConfigFor(kubeconfig, "").RawConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get starting kubeconfig: %w", err)
	}
	return &raw, nil
}

// ContextExists reports whether name is defined in the kubeconfig.
func ContextExists(kubeconfig, name string) (bool, error) {
	raw, err := GetStartingConfig(kubeconfig)
	if err != nil {
		return false, err
	}
	_, ok := raw.Contexts[name]
	return ok, nil
}
