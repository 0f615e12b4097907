package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debugwand/internal/process"
	"debugwand/internal/target"
)

type scriptedRuntime struct {
	results map[string]target.ExecResult
	calls   []string
}

func (s *scriptedRuntime) Describe() string  { return "fake" }
func (s *scriptedRuntime) Kind() target.Kind { return target.KindPod }
func (s *scriptedRuntime) ListTargets(context.Context) ([]target.Target, error) {
	return nil, nil
}
func (s *scriptedRuntime) ListProcesses(context.Context, target.Target) ([]process.Record, error) {
	return nil, nil
}
func (s *scriptedRuntime) CopyFile(context.Context, target.Target, string, string) error { return nil }
func (s *scriptedRuntime) Forward(context.Context, target.Target, int, int) (target.Tunnel, error) {
	return nil, errors.New("unsupported")
}

func (s *scriptedRuntime) Exec(_ context.Context, _ target.Target, cmd []string) (target.ExecResult, error) {
	s.calls = append(s.calls, cmd[0])
	res, ok := s.results[cmd[0]]
	if !ok {
		return target.ExecResult{ExitCode: 127, Stderr: cmd[0] + ": not found"}, nil
	}
	return res, nil
}

const procStatus = "Name:\tpython\nState:\tS (sleeping)\nCapInh:\t0000000000000000\nCapPrm:\t00000000a80c25fb\nCapEff:\t%s\n"

func TestParseCapsh(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want Result
	}{
		{"listed", "Current: cap_chown,cap_kill,cap_sys_ptrace=ep\nBounding set =cap_chown\n", Present},
		{"all", "Current: =ep\n", Present},
		{"default docker set", "Current: cap_chown,cap_dac_override,cap_kill,cap_setuid=ep\n", Missing},
		{"no current line", "garbage\n", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ParseCapsh(tt.out)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCapEff(t *testing.T) {
	// Docker's default set, without CAP_SYS_PTRACE.
	got, detail := ParseCapEff("CapEff:\t00000000a80425fb\n")
	assert.Equal(t, Missing, got)
	assert.Equal(t, "CapEff=00000000a80425fb", detail)

	got, _ = ParseCapEff("CapEff:\t00000000a80c25fb\n")
	assert.Equal(t, Present, got)

	got, _ = ParseCapEff("CapEff:\tzz\n")
	assert.Equal(t, Unknown, got)

	got, _ = ParseCapEff("Name:\tpython\n")
	assert.Equal(t, Unknown, got)
}

func TestCheckPtrace(t *testing.T) {
	pod := target.Target{Kind: target.KindPod, Name: "checkout-abc", Namespace: "prod"}

	t.Run("capsh", func(t *testing.T) {
		rt := &scriptedRuntime{results: map[string]target.ExecResult{
			"capsh": {Stdout: "Current: cap_sys_ptrace=ep\n"},
		}}
		check, err := CheckPtrace(context.Background(), rt, pod)
		require.NoError(t, err)
		assert.Equal(t, Present, check.Result)
		assert.Equal(t, "capsh", check.Source)
		assert.Equal(t, []string{"capsh"}, rt.calls)
	})

	t.Run("proc fallback", func(t *testing.T) {
		rt := &scriptedRuntime{results: map[string]target.ExecResult{
			"cat": {Stdout: "Name:\tpython\nCapEff:\t00000000a80425fb\n"},
		}}
		check, err := CheckPtrace(context.Background(), rt, pod)
		require.NoError(t, err)
		assert.Equal(t, Missing, check.Result)
		assert.Equal(t, "/proc/1/status", check.Source)
		assert.Equal(t, []string{"capsh", "cat"}, rt.calls)
	})

	t.Run("inconclusive", func(t *testing.T) {
		rt := &scriptedRuntime{results: map[string]target.ExecResult{}}
		check, err := CheckPtrace(context.Background(), rt, pod)
		require.NoError(t, err)
		assert.Equal(t, Unknown, check.Result)
	})
}
