package kube

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/client-go/util/exec"

	"debugwand/internal/target"
)

// ExecFunc runs cmd in a pod container. stdin may be nil. A non-zero exit
// is reported in the result, not as an error.
type ExecFunc func(ctx context.Context, namespace, pod, container string, cmd []string, stdin io.Reader) (target.ExecResult, error)

// newSPDYExec returns an ExecFunc backed by the pods/exec subresource.
func newSPDYExec(clientset kubernetes.Interface, restConfig *rest.Config) ExecFunc {
	return func(ctx context.Context, namespace, pod, container string, cmd []string, stdin io.Reader) (target.ExecResult, error) {
		req := clientset.CoreV1().RESTClient().Post().
			Resource("pods").
			Namespace(namespace).
			Name(pod).
			SubResource("exec").
			VersionedParams(&corev1.PodExecOptions{
				Container: container,
				Command:   cmd,
				Stdin:     stdin != nil,
				Stdout:    true,
				Stderr:    true,
			}, scheme.ParameterCodec)

		executor, err := remotecommand.NewSPDYExecutor(restConfig, http.MethodPost, req.URL())
		if err != nil {
			return target.ExecResult{}, fmt.Errorf("failed to create executor for %s/%s: %w", namespace, pod, err)
		}

		var stdout, stderr bytes.Buffer
		err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
			Stdin:  stdin,
			Stdout: &stdout,
			Stderr: &stderr,
		})
		result := target.ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
		if err != nil {
			var exitErr utilexec.ExitError
			if errors.As(err, &exitErr) {
				result.ExitCode = exitErr.ExitStatus()
				return result, nil
			}
			return result, fmt.Errorf("exec %v in %s/%s failed: %w", cmd, namespace, pod, err)
		}
		return result, nil
	}
}

// tarFile wraps a single local file into a tar stream whose only entry is
// named after the remote base name.
func tarFile(localPath, remotePath string) (io.Reader, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{
		Name: path.Base(remotePath),
		Mode: 0o644,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, err
	}
	if _, err := tw.Write(data); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}
