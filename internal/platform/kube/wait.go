package kube

import (
	"context"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/platforge/platforge/internal/util/poll"
)

// WaitForPodsReady waits for all pods matching a label selector to become
// ready. The result carries no verdict on severity; the caller decides
// whether a timeout is fatal.
func (c *Client) WaitForPodsReady(ctx context.Context, namespace, labelSelector string, timeout time.Duration) poll.Result {
	return poll.Await(ctx, poll.Spec{Interval: 10 * time.Second, Timeout: timeout},
		func(ctx context.Context) (bool, error) {
			pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
				LabelSelector: labelSelector,
			})
			if err != nil {
				return false, err
			}
			if len(pods.Items) == 0 {
				return false, nil
			}
			for i := range pods.Items {
				if !isPodReady(&pods.Items[i]) {
					return false, nil
				}
			}
			return true, nil
		})
}

// WaitForStatefulSetReady waits for a stateful set to have all replicas ready.
func (c *Client) WaitForStatefulSetReady(ctx context.Context, namespace, name string, timeout time.Duration) poll.Result {
	return poll.Await(ctx, poll.Spec{Interval: 10 * time.Second, Timeout: timeout},
		func(ctx context.Context) (bool, error) {
			sts, err := c.clientset.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
			if err != nil {
				return false, err
			}
			if sts.Spec.Replicas == nil {
				return false, nil
			}
			return sts.Status.ReadyReplicas == *sts.Spec.Replicas, nil
		})
}

// WaitForDeploymentReady waits for a deployment to have all replicas available.
func (c *Client) WaitForDeploymentReady(ctx context.Context, namespace, name string, timeout time.Duration) poll.Result {
	return poll.Await(ctx, poll.Spec{Interval: 10 * time.Second, Timeout: timeout},
		func(ctx context.Context) (bool, error) {
			deploy, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
			if err != nil {
				return false, nil
			}
			if deploy.Spec.Replicas == nil {
				return false, nil
			}
			return deploy.Status.AvailableReplicas == *deploy.Spec.Replicas, nil
		})
}

func isPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}
	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodReady && condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
