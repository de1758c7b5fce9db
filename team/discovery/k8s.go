// Package discovery resolves dash team membership from a Kubernetes
// headless Service backing a StatefulSet, the same orchestrator-aware
// bootstrap style the teacher project leans on throughout (its go.mod
// carries the full k8s.io/client-go stack; dash uses it for exactly
// one narrow purpose: turning a label selector into an ordered unit
// roster).
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	metricsclientset "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/Rodario/dash/team"
)

// K8s discovers team members from Pods matching LabelSelector in
// Namespace. Each Pod must carry a stable ordinal in its name
// (StatefulSet pods are named "<name>-<ordinal>"), which becomes the
// unit id - mirroring how aistore-style deployments pin cluster
// identity to pod ordinals rather than ephemeral IPs.
type K8s struct {
	Namespace     string
	LabelSelector string
	Port          int

	clientset        *kubernetes.Clientset
	metricsClientset *metricsclientset.Clientset
}

var _ team.Discoverer = (*K8s)(nil)

// NewK8s builds a discoverer using the in-cluster service account
// config (kubeconfig is not consulted - dash units run as Kubernetes
// Pods, never as an external kubectl-style client).
func NewK8s(namespace, labelSelector string, port int) (*K8s, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("discovery: in-cluster config: %w", err)
	}
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("discovery: build clientset: %w", err)
	}
	// The metrics-server API may not be deployed in every cluster; a
	// missing server only fails calls to ResourceMetrics, not discovery
	// itself, so building this clientset never blocks NewK8s.
	mcs, err := metricsclientset.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("discovery: build metrics clientset: %w", err)
	}
	return &K8s{Namespace: namespace, LabelSelector: labelSelector, Port: port, clientset: cs, metricsClientset: mcs}, nil
}

func (k *K8s) Discover() ([]team.Endpoint, error) {
	pods, err := k.clientset.CoreV1().Pods(k.Namespace).List(context.Background(), metav1.ListOptions{
		LabelSelector: k.LabelSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: list pods: %w", err)
	}
	eps := make([]team.Endpoint, 0, len(pods.Items))
	for _, p := range pods.Items {
		if p.Status.Phase != corev1.PodRunning || p.Status.PodIP == "" {
			continue
		}
		ord, err := ordinalOf(p.Name)
		if err != nil {
			return nil, fmt.Errorf("discovery: pod %q has no ordinal suffix: %w", p.Name, err)
		}
		eps = append(eps, team.Endpoint{
			Ordinal: ord,
			Addr:    fmt.Sprintf("%s:%d", p.Status.PodIP, k.Port),
		})
	}
	sort.Slice(eps, func(i, j int) bool { return eps[i].Ordinal < eps[j].Ordinal })
	return eps, nil
}

// PodResourceUsage is one pod's most recent CPU/memory sample from the
// Kubernetes metrics-server, keyed by the same ordinal Discover uses
// for unit identity.
type PodResourceUsage struct {
	Ordinal   int
	CPUMillis int64
	MemBytes  int64
}

// ResourceMetrics reports current CPU/memory usage for every pod
// matching LabelSelector, for callers that want to weight placement or
// alerting by load instead of plain membership. It requires the
// cluster's metrics-server to be running; a cluster without one
// returns an error here without affecting Discover.
func (k *K8s) ResourceMetrics(ctx context.Context) ([]PodResourceUsage, error) {
	list, err := k.metricsClientset.MetricsV1beta1().PodMetricses(k.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: k.LabelSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: list pod metrics: %w", err)
	}
	out := make([]PodResourceUsage, 0, len(list.Items))
	for _, pm := range list.Items {
		ord, err := ordinalOf(pm.Name)
		if err != nil {
			continue
		}
		var cpu, mem int64
		for _, c := range pm.Containers {
			cpu += c.Usage.Cpu().MilliValue()
			mem += c.Usage.Memory().Value()
		}
		out = append(out, PodResourceUsage{Ordinal: ord, CPUMillis: cpu, MemBytes: mem})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

func ordinalOf(podName string) (int, error) {
	idx := strings.LastIndexByte(podName, '-')
	if idx < 0 || idx == len(podName)-1 {
		return 0, fmt.Errorf("no '-<ordinal>' suffix in %q", podName)
	}
	return strconv.Atoi(podName[idx+1:])
}
