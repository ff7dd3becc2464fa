/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package cost

import (
	"context"
	"errors"
	"math"
	"testing"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
)

const epsilon = 1e-9

func pod(namespace, name string, phase corev1.PodPhase, requests ...corev1.ResourceList) *corev1.Pod {
	p := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Status:     corev1.PodStatus{Phase: phase},
	}
	for i, r := range requests {
		p.Spec.Containers = append(p.Spec.Containers, corev1.Container{
			Name:      "c" + string(rune('0'+i)),
			Resources: corev1.ResourceRequirements{Requests: r},
		})
	}
	return p
}

func requests(cpu, memory string) corev1.ResourceList {
	list := corev1.ResourceList{}
	if cpu != "" {
		list[corev1.ResourceCPU] = resource.MustParse(cpu)
	}
	if memory != "" {
		list[corev1.ResourceMemory] = resource.MustParse(memory)
	}
	return list
}

func TestPodHourlyCost(t *testing.T) {
	tests := []struct {
		name string
		pod  *corev1.Pod
		want float64
	}{
		{
			name: "CPU and memory",
			pod:  pod("staging-a", "app", corev1.PodRunning, requests("500m", "1Gi")),
			want: 0.025, // (0.5 * 0.04) + (1 * 0.005)
		},
		{
			name: "multiple containers",
			pod:  pod("staging-a", "app", corev1.PodRunning, requests("1", "2Gi"), requests("250m", "")),
			want: 0.06, // (1.25 * 0.04) + (2 * 0.005)
		},
		{
			name: "no requests",
			pod:  pod("staging-a", "app", corev1.PodRunning),
			want: 0,
		},
		{
			name: "pending pods still reserve capacity",
			pod:  pod("staging-a", "app", corev1.PodPending, requests("1", "")),
			want: 0.04,
		},
		{
			name: "succeeded pods are free",
			pod:  pod("staging-a", "migrate", corev1.PodSucceeded, requests("2", "4Gi")),
			want: 0,
		},
		{
			name: "failed pods are free",
			pod:  pod("staging-a", "migrate", corev1.PodFailed, requests("2", "4Gi")),
			want: 0,
		},
	}

	estimator := NewEstimator(nil, DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := estimator.PodHourlyCost(tt.pod); math.Abs(got-tt.want) > epsilon {
				t.Errorf("PodHourlyCost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHourlyCost(t *testing.T) {
	scheme := runtime.NewScheme()
	_ = clientgoscheme.AddToScheme(scheme)

	c := fake.NewClientBuilder().WithScheme(scheme).WithObjects(
		pod("staging-a", "server", corev1.PodRunning, requests("1", "1Gi")),
		pod("staging-a", "mysql-0", corev1.PodRunning, requests("500m", "2Gi")),
		pod("staging-a", "migrations", corev1.PodSucceeded, requests("4", "8Gi")),
		pod("staging-b", "server", corev1.PodRunning, requests("8", "32Gi")),
	).Build()

	estimator := NewEstimator(c, Config{CPUCostPerHour: 0.1, MemoryCostPerHour: 0.01, Currency: "EUR"})

	got, err := estimator.HourlyCost(context.Background(), "staging-a")
	if err != nil {
		t.Fatalf("HourlyCost() unexpected error: %v", err)
	}
	// (1.5 * 0.1) + (3 * 0.01)
	if want := 0.18; math.Abs(got-want) > epsilon {
		t.Errorf("HourlyCost() = %v, want %v", got, want)
	}
	if estimator.Currency() != "EUR" {
		t.Errorf("Currency() = %q, want EUR", estimator.Currency())
	}

	empty, err := estimator.HourlyCost(context.Background(), "staging-gone")
	if err != nil || empty != 0 {
		t.Errorf("HourlyCost() of an empty namespace = %v, %v, want 0, nil", empty, err)
	}
}

func TestHourlyCost_propagates_list_errors(t *testing.T) {
	listErr := errors.New("forbidden")
	c := fake.NewClientBuilder().
		WithInterceptorFuncs(interceptor.Funcs{
			List: func(_ context.Context, _ client.WithWatch, _ client.ObjectList, _ ...client.ListOption) error {
				return listErr
			},
		}).
		Build()

	if _, err := NewEstimator(c, DefaultConfig()).HourlyCost(context.Background(), "staging-a"); !errors.Is(err, listErr) {
		t.Errorf("HourlyCost() error = %v, want %v", err, listErr)
	}
}

func TestParseResourceQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		resource corev1.ResourceName
		want     float64
	}{
		{"millicores", "250m", corev1.ResourceCPU, 0.25},
		{"whole cores", "2", corev1.ResourceCPU, 2},
		{"gibibytes", "512Mi", corev1.ResourceMemory, 0.5},
		{"unsupported resource", "10Gi", corev1.ResourceEphemeralStorage, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseResourceQuantity(resource.MustParse(tt.quantity), tt.resource)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("ParseResourceQuantity(%s) = %v, want %v", tt.quantity, got, tt.want)
			}
		})
	}
}
