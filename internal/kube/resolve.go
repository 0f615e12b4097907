package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"

	"debugwand/internal/failure"
	"debugwand/internal/target"
)

// ResolveServiceSelector maps a service to the label selector of its pods.
//
// Knative services surface as ExternalName services without a selector;
// their pods carry the serving.knative.dev/service label instead.
func ResolveServiceSelector(ctx context.Context, clientset kubernetes.Interface, namespace, service string) (string, error) {
	svc, err := clientset.CoreV1().Services(namespace).Get(ctx, service, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", &failure.NotFoundError{Resource: "service", Name: service, Namespace: namespace}
		}
		return "", fmt.Errorf("failed to get service %s/%s: %w", namespace, service, err)
	}

	if svc.Spec.Type == corev1.ServiceTypeExternalName {
		return labels.SelectorFromSet(labels.Set{target.LabelKnativeService: service}).String(), nil
	}

	if len(svc.Spec.Selector) == 0 {
		return "", &failure.ResolutionError{Service: service, Namespace: namespace, Reason: "service has no selector"}
	}
	return labels.SelectorFromSet(svc.Spec.Selector).String(), nil
}

// ListPods returns the pods matching selector as targets.
func ListPods(ctx context.Context, clientset kubernetes.Interface, namespace, selector string) ([]target.Target, error) {
	podList, err := clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods in %s with selector %q: %w", namespace, selector, err)
	}
	targets := make([]target.Target, 0, len(podList.Items))
	for i := range podList.Items {
		targets = append(targets, podToTarget(&podList.Items[i]))
	}
	return targets, nil
}

func podToTarget(pod *corev1.Pod) target.Target {
	return target.Target{
		Kind:      target.KindPod,
		Name:      pod.Name,
		Namespace: pod.Namespace,
		Status:    podStatus(pod),
		Created:   pod.CreationTimestamp.Time,
		Labels:    pod.Labels,
		NodeName:  pod.Spec.NodeName,
	}
}

// podStatus maps the pod phase. A pod being deleted is reported as Pending
// so it is never picked as a replacement.
func podStatus(pod *corev1.Pod) target.Status {
	if pod.DeletionTimestamp != nil {
		return target.StatusPending
	}
	switch pod.Status.Phase {
	case corev1.PodRunning:
		return target.StatusRunning
	case corev1.PodPending:
		return target.StatusPending
	case corev1.PodSucceeded:
		return target.StatusSucceeded
	case corev1.PodFailed:
		return target.StatusFailed
	default:
		return target.StatusUnknown
	}
}

// defaultContainer picks the container to exec into.
func defaultContainer(pod *corev1.Pod) string {
	if name, ok := pod.Annotations["kubectl.kubernetes.io/default-container"]; ok && name != "" {
		return name
	}
	if len(pod.Spec.Containers) > 0 {
		return pod.Spec.Containers[0].Name
	}
	return ""
}
