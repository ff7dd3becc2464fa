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
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Config defines the pricing configuration for cost estimation
type Config struct {
	Currency          string
	CPUCostPerHour    float64
	MemoryCostPerHour float64
}

// DefaultConfig returns the default pricing configuration
func DefaultConfig() Config {
	return Config{
		CPUCostPerHour:    0.04,  // $0.04 per vCPU-hour
		MemoryCostPerHour: 0.005, // $0.005 per GB-hour
		Currency:          "USD",
	}
}

// Estimator calculates the running cost of preview namespaces
type Estimator struct {
	client client.Client
	config Config
}

// NewEstimator creates a new cost estimator reading pods through c
func NewEstimator(c client.Client, config Config) *Estimator {
	return &Estimator{
		client: c,
		config: config,
	}
}

// Currency returns the currency estimates are expressed in
func (e *Estimator) Currency() string {
	return e.config.Currency
}

// HourlyCost returns the hourly cost of every live pod in a namespace
func (e *Estimator) HourlyCost(ctx context.Context, namespace string) (float64, error) {
	var pods corev1.PodList
	if err := e.client.List(ctx, &pods, client.InNamespace(namespace)); err != nil {
		return 0, fmt.Errorf("failed to list pods in %s: %w", namespace, err)
	}

	var total float64
	for i := range pods.Items {
		total += e.PodHourlyCost(&pods.Items[i])
	}
	return total, nil
}

// PodHourlyCost calculates the hourly cost of a pod from its resource requests.
// Finished pods cost nothing.
func (e *Estimator) PodHourlyCost(pod *corev1.Pod) float64 {
	if pod.Status.Phase == corev1.PodSucceeded || pod.Status.Phase == corev1.PodFailed {
		return 0
	}

	var totalCPU float64
	var totalMemoryGB float64

	for _, container := range pod.Spec.Containers {
		if cpu, ok := container.Resources.Requests[corev1.ResourceCPU]; ok {
			totalCPU += ParseResourceQuantity(cpu, corev1.ResourceCPU)
		}
		if memory, ok := container.Resources.Requests[corev1.ResourceMemory]; ok {
			totalMemoryGB += ParseResourceQuantity(memory, corev1.ResourceMemory)
		}
	}

	return totalCPU*e.config.CPUCostPerHour + totalMemoryGB*e.config.MemoryCostPerHour
}

// ParseResourceQuantity parses a Kubernetes resource quantity and returns the value in the base unit
func ParseResourceQuantity(quantity resource.Quantity, resourceType corev1.ResourceName) float64 {
	switch resourceType {
	case corev1.ResourceCPU:
		// CPU is in millicores, convert to cores
		return float64(quantity.MilliValue()) / 1000.0
	case corev1.ResourceMemory:
		// Memory is in bytes, convert to GB
		return float64(quantity.Value()) / (1024 * 1024 * 1024)
	default:
		return 0
	}
}
