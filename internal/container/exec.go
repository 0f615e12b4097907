package container

import (
	"bytes"
	"context"
	"fmt"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"debugwand/internal/target"
)

// execIn runs cmd inside the container and returns its demultiplexed output
// and exit code.
func execIn(ctx context.Context, docker DockerAPI, name string, cmd []string) (target.ExecResult, error) {
	execCfg := dockercontainer.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	}

	resp, err := docker.ContainerExecCreate(ctx, name, execCfg)
	if err != nil {
		return target.ExecResult{}, fmt.Errorf("create exec %v: %w", cmd, err)
	}

	attach, err := docker.ContainerExecAttach(ctx, resp.ID, dockercontainer.ExecAttachOptions{})
	if err != nil {
		return target.ExecResult{}, fmt.Errorf("attach exec %v: %w", cmd, err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return target.ExecResult{}, fmt.Errorf("read exec output %v: %w", cmd, err)
	}

	info, err := docker.ContainerExecInspect(ctx, resp.ID)
	if err != nil {
		return target.ExecResult{}, fmt.Errorf("inspect exec %v: %w", cmd, err)
	}

	return target.ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: info.ExitCode,
	}, nil
}
