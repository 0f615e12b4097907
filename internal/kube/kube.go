package kube

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"k8s.io/client-go/kubernetes"
	_ "k8s.io/client-go/plugin/pkg/client/auth" // Important for various auth providers
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/portforward"
	"k8s.io/client-go/transport/spdy"

	"debugwand/internal/target"
	"debugwand/pkg/logging"
)

// ForwardFunc starts a port forward to a pod and returns immediately.
type ForwardFunc func(ctx context.Context, namespace, pod string, localPort, remotePort int) (target.Tunnel, error)

// logWriter is an io.Writer that relays client-go port-forward output to
// the debug log, one record per line.
type logWriter struct {
	label   string
	asError bool
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	lines := strings.Split(strings.TrimSuffix(string(p), "\n"), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		if w.asError {
			logging.Warn("PortForward", "[%s] %s", w.label, line)
		} else {
			logging.Debug("PortForward", "[%s] %s", w.label, line)
		}
	}
	return len(p), nil
}

// readyTimeout bounds how long the forwarder may take to bind locally.
const readyTimeout = 60 * time.Second

// newSPDYForward returns a ForwardFunc backed by the pods/portforward
// subresource, listening on 127.0.0.1 only.
func newSPDYForward(clientset kubernetes.Interface, restConfig *rest.Config) ForwardFunc {
	return func(ctx context.Context, namespace, pod string, localPort, remotePort int) (target.Tunnel, error) {
		// Example URL: POST https://<server>/api/v1/namespaces/<namespace>/pods/<pod>/portforward
		reqURL := clientset.CoreV1().RESTClient().Post().
			Resource("pods").
			Namespace(namespace).
			Name(pod).
			SubResource("portforward").
			URL()

		transport, upgrader, err := spdy.RoundTripperFor(restConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create SPDY round tripper: %w", err)
		}
		dialer := spdy.NewDialer(upgrader, &http.Client{Transport: transport}, http.MethodPost, reqURL)

		tunnel := target.NewChanTunnel()
		label := fmt.Sprintf("%s/%s %d:%d", namespace, pod, localPort, remotePort)
		ports := []string{fmt.Sprintf("%d:%d", localPort, remotePort)}
		addresses := []string{"127.0.0.1"}

		forwarder, err := portforward.NewOnAddresses(dialer, addresses, ports, tunnel.StopChan(), tunnel.ReadyChan(),
			&logWriter{label: label}, &logWriter{label: label, asError: true})
		if err != nil {
			return nil, fmt.Errorf("failed to create port forwarder: %w", err)
		}

		logging.Debug("PortForward", "Starting port forward %s", label)
		go func() {
			err := forwarder.ForwardPorts()
			select {
			case <-tunnel.StopChan():
				logging.Debug("PortForward", "Port forward %s stopped by request", label)
				tunnel.Finish(nil)
			default:
				if err == nil {
					err = fmt.Errorf("port forward connection to %s closed", pod)
				}
				logging.Debug("PortForward", "Port forward %s ended: %v", label, err)
				tunnel.Finish(err)
			}
		}()

		go func() {
			select {
			case <-tunnel.Ready():
				logging.Debug("PortForward", "Forwarding from 127.0.0.1:%d to pod port %d", localPort, remotePort)
			case <-tunnel.Done():
			case <-ctx.Done():
				tunnel.Close()
			case <-time.After(readyTimeout):
				logging.Warn("PortForward", "Timeout (%s) waiting for port forward %s to become ready", readyTimeout, label)
				tunnel.Close()
			}
		}()

		return tunnel, nil
	}
}
