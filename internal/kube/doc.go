// Package kube implements the debug target runtime for Kubernetes.
//
// A PodRuntime is scoped to one service. Every call re-queries the API
// server; nothing about pods is cached between calls.
//
// # Service Resolution
//
// A service is mapped to a pod label selector:
//
//   - ExternalName services (how Knative exposes a Service) select on
//     serving.knative.dev/service=<name>
//   - every other service uses its spec.selector
//   - a service without a selector cannot be debugged and yields a
//     failure.ResolutionError
//
// # Exec, Copy and Port Forwarding
//
// All traffic goes through the API server subresources, the same way kubectl
// does it:
//
//   - pods/exec through an SPDY remotecommand executor; copies pipe a tar
//     stream into `tar xf -`
//   - pods/portforward through portforward.NewOnAddresses, bound to
//     127.0.0.1 only
//
// The exec and forward functions are injectable through Options so that
// tests can run against the client-go fake clientset, whose REST client
// cannot serve subresources.
//
// # Context Management
//
// RESTConfig and GetCurrentKubeContext use clientcmd deferred loading, so the
// usual KUBECONFIG rules apply unless --kubeconfig or --context override them.
package kube
