package failure

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain", errors.New("x"), KindInternal},
		{"not found", &NotFoundError{Resource: "service", Name: "a"}, KindResolution},
		{"wrapped permission", fmt.Errorf("inject: %w", &PermissionError{}), KindPermission},
		{"port", &PortInUseError{Port: 5679}, KindConflict},
		{"not running", &NotRunningError{Target: "p"}, KindTransientLiveness},
		{"timeout", &ReconnectTimeoutError{Waited: 5 * time.Minute}, KindTimeout},
		{"selection", &InvalidSelectionError{Reason: "r"}, KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, KindPermission.Terminal())
	assert.True(t, KindConflict.Terminal())
	assert.True(t, KindValidation.Terminal())
	assert.False(t, KindResolution.Terminal())
	assert.False(t, KindTransientLiveness.Terminal())
}

func TestPermissionHintPerTargetKind(t *testing.T) {
	pod := &PermissionError{TargetKind: TargetPod}
	assert.Contains(t, pod.Hint(), "securityContext")
	assert.Contains(t, pod.Hint(), "SYS_PTRACE")

	ctr := &PermissionError{TargetKind: TargetContainer}
	assert.Contains(t, ctr.Hint(), "--cap-add=SYS_PTRACE")
	assert.Contains(t, ctr.Hint(), "cap_add")
}

func TestServiceNotFoundHint(t *testing.T) {
	err := &NotFoundError{Resource: "service", Name: "checkout", Namespace: "prod"}
	assert.Equal(t, `service "checkout" not found in namespace "prod"`, err.Error())
	assert.Contains(t, Hint(err), "kubectl get svc -n prod")
	assert.Contains(t, Hint(err), "Knative")
}

func TestPIDNotFoundNamesPID(t *testing.T) {
	err := &PIDNotFoundError{PID: 999, Available: []int{1, 55}}
	assert.Contains(t, err.Error(), "999")
	assert.Equal(t, "Available PIDs: 1, 55", err.Hint())
}

func TestPortInUseMessage(t *testing.T) {
	err := &PortInUseError{Port: 5679, PID: 4242, Command: "other-app"}
	assert.Contains(t, err.Error(), "other-app")
	assert.Contains(t, err.Error(), "5679")
	assert.Contains(t, err.Hint(), "--port")
}

func TestForwardSetupFailedUnwraps(t *testing.T) {
	inner := errors.New("connection refused")
	err := &ForwardSetupFailedError{Port: 1, Err: inner}
	assert.ErrorIs(t, err, inner)
}

func TestReconnectTimeoutMessage(t *testing.T) {
	err := &ReconnectTimeoutError{Waited: 5 * time.Minute}
	assert.Equal(t, "no replacement target became ready within 5m0s", err.Error())
}
