package cmd

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/clientcmd/api"

	"debugwand/internal/failure"
)

func TestCheckKubeContext(t *testing.T) {
	cfg := api.NewConfig()
	cfg.Clusters["c"] = &api.Cluster{Server: "https://127.0.0.1:6443"}
	cfg.AuthInfos["u"] = &api.AuthInfo{Token: "t"}
	cfg.Contexts["kind-dev"] = &api.Context{Cluster: "c", AuthInfo: "u"}
	cfg.CurrentContext = "kind-dev"
	path := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, clientcmd.WriteToFile(*cfg, path))

	assert.NoError(t, checkKubeContext(path, ""))
	assert.NoError(t, checkKubeContext(path, "kind-dev"))

	err := checkKubeContext(path, "prod")
	var ve *failure.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "--context", ve.Field)
}

func TestTargetFlagsValidate(t *testing.T) {
	assert.NoError(t, targetFlags{namespace: "prod", service: "checkout"}.validate())
	assert.NoError(t, targetFlags{container: "api"}.validate())
	assert.Error(t, targetFlags{}.validate())
	assert.Error(t, targetFlags{namespace: "prod"}.validate())
	assert.Error(t, targetFlags{service: "checkout"}.validate())
	assert.Error(t, targetFlags{container: "api", namespace: "prod"}.validate())
	assert.Equal(t, "api", targetFlags{container: "api"}.serviceLabel())
	assert.Equal(t, "checkout", targetFlags{namespace: "prod", service: "checkout"}.serviceLabel())
}
