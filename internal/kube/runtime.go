package kube

import (
	"context"
	"fmt"
	"path"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"debugwand/internal/failure"
	"debugwand/internal/process"
	"debugwand/internal/target"
	"debugwand/pkg/logging"
)

// Options configure a PodRuntime. Exec and Forward default to the SPDY
// implementations and are only replaced in tests.
type Options struct {
	ExecTimeout time.Duration
	Exec        ExecFunc
	Forward     ForwardFunc
}

// PodRuntime implements target.Runtime for the pods behind one service.
type PodRuntime struct {
	clientset   kubernetes.Interface
	namespace   string
	service     string
	execTimeout time.Duration
	exec        ExecFunc
	forward     ForwardFunc
}

var _ target.Runtime = (*PodRuntime)(nil)

// NewPodRuntime connects to the cluster selected by kubeconfig and kubeContext.
func NewPodRuntime(kubeconfig, kubeContext, namespace, service string, opts Options) (*PodRuntime, error) {
	restConfig, err := RESTConfig(kubeconfig, kubeContext)
	if err != nil {
		return nil, err
	}
	restConfig.Timeout = 30 * time.Second

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes clientset: %w", err)
	}
	if opts.Exec == nil {
		opts.Exec = newSPDYExec(clientset, restConfig)
	}
	if opts.Forward == nil {
		opts.Forward = newSPDYForward(clientset, restConfig)
	}
	return NewPodRuntimeForClientset(clientset, namespace, service, opts), nil
}

// NewPodRuntimeForClientset builds a runtime on an existing clientset.
func NewPodRuntimeForClientset(clientset kubernetes.Interface, namespace, service string, opts Options) *PodRuntime {
	if opts.ExecTimeout <= 0 {
		opts.ExecTimeout = 10 * time.Second
	}
	return &PodRuntime{
		clientset:   clientset,
		namespace:   namespace,
		service:     service,
		execTimeout: opts.ExecTimeout,
		exec:        opts.Exec,
		forward:     opts.Forward,
	}
}

func (r *PodRuntime) Describe() string {
	return fmt.Sprintf("service %s/%s", r.namespace, r.service)
}

func (r *PodRuntime) Kind() target.Kind { return target.KindPod }

// ListTargets resolves the service and lists its pods. The selector is
// resolved on every call so a recreated service is picked up.
func (r *PodRuntime) ListTargets(ctx context.Context) ([]target.Target, error) {
	selector, err := ResolveServiceSelector(ctx, r.clientset, r.namespace, r.service)
	if err != nil {
		return nil, err
	}
	logging.Debug("Kube", "Listing pods in %s with selector %s", r.namespace, selector)
	return ListPods(ctx, r.clientset, r.namespace, selector)
}

// ListProcesses re-reads the pod and lists its python processes.
func (r *PodRuntime) ListProcesses(ctx context.Context, t target.Target) ([]process.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.execTimeout)
	defer cancel()

	pod, err := r.clientset.CoreV1().Pods(t.Namespace).Get(ctx, t.Name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, &failure.NotFoundError{Resource: "pod", Name: t.Name, Namespace: t.Namespace}
		}
		return nil, fmt.Errorf("failed to get pod %s/%s: %w", t.Namespace, t.Name, err)
	}
	if status := podStatus(pod); status != target.StatusRunning {
		return nil, &failure.NotRunningError{Target: t.String(), Status: string(status)}
	}

	res, err := r.exec(ctx, t.Namespace, t.Name, defaultContainer(pod), []string{"ps", "aux"}, nil)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("ps aux in %s exited with %d: %s", t, res.ExitCode, res.Stderr)
	}
	return process.ParsePS(res.Stdout), nil
}

func (r *PodRuntime) Exec(ctx context.Context, t target.Target, cmd []string) (target.ExecResult, error) {
	container, err := r.container(ctx, t)
	if err != nil {
		return target.ExecResult{}, err
	}
	return r.exec(ctx, t.Namespace, t.Name, container, cmd, nil)
}

// CopyFile streams localPath into the pod as remotePath by piping a tar
// archive into `tar xf -`, the same mechanism kubectl cp uses.
func (r *PodRuntime) CopyFile(ctx context.Context, t target.Target, localPath, remotePath string) error {
	container, err := r.container(ctx, t)
	if err != nil {
		return err
	}
	archive, err := tarFile(localPath, remotePath)
	if err != nil {
		return err
	}
	res, err := r.exec(ctx, t.Namespace, t.Name, container, []string{"tar", "xf", "-", "-C", path.Dir(remotePath)}, archive)
	if err != nil {
		return fmt.Errorf("failed to copy %s to %s:%s: %w", localPath, t.Name, remotePath, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("failed to copy %s to %s:%s: %s", localPath, t.Name, remotePath, res.Combined())
	}
	logging.Debug("Kube", "Copied %s to %s:%s", localPath, t.Name, remotePath)
	return nil
}

func (r *PodRuntime) Forward(ctx context.Context, t target.Target, localPort, remotePort int) (target.Tunnel, error) {
	return r.forward(ctx, t.Namespace, t.Name, localPort, remotePort)
}

func (r *PodRuntime) container(ctx context.Context, t target.Target) (string, error) {
	pod, err := r.clientset.CoreV1().Pods(t.Namespace).Get(ctx, t.Name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", &failure.NotFoundError{Resource: "pod", Name: t.Name, Namespace: t.Namespace}
		}
		return "", fmt.Errorf("failed to get pod %s/%s: %w", t.Namespace, t.Name, err)
	}
	return defaultContainer(pod), nil
}
