package container

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"

	"debugwand/internal/failure"
	"debugwand/internal/process"
	"debugwand/internal/target"
	"debugwand/pkg/logging"
)

// Runtime implements target.Runtime for a single named Docker container.
type Runtime struct {
	docker      DockerAPI
	name        string
	execTimeout time.Duration
}

var (
	_ target.Runtime      = (*Runtime)(nil)
	_ target.DirectAccess = (*Runtime)(nil)
)

func NewRuntime(docker DockerAPI, name string, execTimeout time.Duration) *Runtime {
	if execTimeout <= 0 {
		execTimeout = 10 * time.Second
	}
	return &Runtime{docker: docker, name: name, execTimeout: execTimeout}
}

func (r *Runtime) Describe() string { return "container " + r.name }

func (r *Runtime) Kind() target.Kind { return target.KindContainer }

// Close releases the Docker client.
func (r *Runtime) Close() error { return r.docker.Close() }

func (r *Runtime) inspect(ctx context.Context, name string) (dockercontainer.InspectResponse, error) {
	info, err := r.docker.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return dockercontainer.InspectResponse{}, &failure.NotFoundError{Resource: "container", Name: name}
		}
		return dockercontainer.InspectResponse{}, fmt.Errorf("inspect container %s: %w", name, err)
	}
	return info, nil
}

// ListTargets returns the one container this runtime is scoped to.
func (r *Runtime) ListTargets(ctx context.Context) ([]target.Target, error) {
	info, err := r.inspect(ctx, r.name)
	if err != nil {
		return nil, err
	}
	return []target.Target{toTarget(r.name, info)}, nil
}

func (r *Runtime) ListProcesses(ctx context.Context, t target.Target) ([]process.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.execTimeout)
	defer cancel()

	info, err := r.inspect(ctx, t.Name)
	if err != nil {
		return nil, err
	}
	if status := containerStatus(info); status != target.StatusRunning {
		return nil, &failure.NotRunningError{Target: t.String(), Status: string(status)}
	}

	res, err := execIn(ctx, r.docker, t.Name, []string{"ps", "aux"})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("ps aux in %s exited with %d: %s", t, res.ExitCode, res.Stderr)
	}
	return process.ParsePS(res.Stdout), nil
}

func (r *Runtime) Exec(ctx context.Context, t target.Target, cmd []string) (target.ExecResult, error) {
	return execIn(ctx, r.docker, t.Name, cmd)
}

// CopyFile uploads localPath as remotePath through the archive endpoint.
func (r *Runtime) CopyFile(ctx context.Context, t target.Target, localPath, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{Name: path.Base(remotePath), Mode: 0o644, Size: int64(len(data))}); err != nil {
		return err
	}
	if _, err := tw.Write(data); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}

	if err := r.docker.CopyToContainer(ctx, t.Name, path.Dir(remotePath), &buf, dockercontainer.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("failed to copy %s to %s:%s: %w", localPath, t.Name, remotePath, err)
	}
	logging.Debug("Container", "Copied %s to %s:%s", localPath, t.Name, remotePath)
	return nil
}

// PublishedPort reports the host port a container publishes remotePort on.
func (r *Runtime) PublishedPort(ctx context.Context, t target.Target, remotePort int) (int, bool) {
	info, err := r.inspect(ctx, t.Name)
	if err != nil || info.NetworkSettings == nil {
		return 0, false
	}
	port, err := nat.NewPort("tcp", strconv.Itoa(remotePort))
	if err != nil {
		return 0, false
	}
	for _, binding := range info.NetworkSettings.Ports[port] {
		hostPort, err := strconv.Atoi(binding.HostPort)
		if err == nil && hostPort > 0 {
			return hostPort, true
		}
	}
	return 0, false
}

// Forward relays 127.0.0.1:localPort to the container's network address.
func (r *Runtime) Forward(ctx context.Context, t target.Target, localPort, remotePort int) (target.Tunnel, error) {
	info, err := r.inspect(ctx, t.Name)
	if err != nil {
		return nil, err
	}
	ip := containerIP(info)
	if ip == "" {
		return nil, fmt.Errorf("container %s has no network address; publish port %d instead (-p %d:%d)", t.Name, remotePort, remotePort, remotePort)
	}
	return startRelay(ctx, localPort, fmt.Sprintf("%s:%d", ip, remotePort))
}

func toTarget(name string, info dockercontainer.InspectResponse) target.Target {
	t := target.Target{
		Kind:   target.KindContainer,
		Name:   name,
		Status: containerStatus(info),
	}
	if info.ContainerJSONBase != nil {
		t.ID = info.ID
		if created, err := time.Parse(time.RFC3339Nano, info.Created); err == nil {
			t.Created = created
		}
	}
	if info.Config != nil {
		t.Labels = info.Config.Labels
	}
	return t
}

func containerStatus(info dockercontainer.InspectResponse) target.Status {
	if info.ContainerJSONBase == nil || info.State == nil {
		return target.StatusUnknown
	}
	st := info.State
	switch {
	case st.Running && !st.Paused && !st.Restarting:
		return target.StatusRunning
	case st.Paused, st.Restarting, strings.EqualFold(string(st.Status), "created"):
		return target.StatusPending
	case st.Dead:
		return target.StatusFailed
	case strings.EqualFold(string(st.Status), "exited"):
		if st.ExitCode == 0 {
			return target.StatusSucceeded
		}
		return target.StatusFailed
	default:
		return target.StatusUnknown
	}
}

// containerIP returns the first address by network name.
func containerIP(info dockercontainer.InspectResponse) string {
	if info.NetworkSettings == nil {
		return ""
	}
	names := make([]string, 0, len(info.NetworkSettings.Networks))
	for n := range info.NetworkSettings.Networks {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if ep := info.NetworkSettings.Networks[n]; ep != nil && ep.IPAddress != "" {
			return ep.IPAddress
		}
	}
	return ""
}
