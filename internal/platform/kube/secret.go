package kube

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/platforge/platforge/internal/util/poll"
)

// GetSecret reads a secret's data, returning found=false when absent.
func (c *Client) GetSecret(ctx context.Context, namespace, name string) (map[string][]byte, bool, error) {
	secret, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get secret %s/%s: %w", namespace, name, err)
	}
	return secret.Data, true, nil
}

// EnsureServiceAccountToken creates a service account and a long-lived
// token secret for it, then waits for the control plane to populate the
// token. Both creates are no-ops when the objects already exist, so the
// call is safe to repeat.
//
// A long-lived secret-backed token is used deliberately: ephemeral default
// tokens may not be auto-issued at all on current clusters.
func (c *Client) EnsureServiceAccountToken(ctx context.Context, namespace, name string, timeout time.Duration) ([]byte, error) {
	sa := &corev1.ServiceAccount{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
	}
	_, err := c.clientset.CoreV1().ServiceAccounts(namespace).Create(ctx, sa, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return nil, fmt.Errorf("failed to create service account %s/%s: %w", namespace, name, err)
	}

	secretName := name + "-token"
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      secretName,
			Namespace: namespace,
			Annotations: map[string]string{
				corev1.ServiceAccountNameKey: name,
			},
		},
		Type: corev1.SecretTypeServiceAccountToken,
	}
	_, err = c.clientset.CoreV1().Secrets(namespace).Create(ctx, secret, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return nil, fmt.Errorf("failed to create token secret %s/%s: %w", namespace, secretName, err)
	}

	var token []byte
	res := poll.Await(ctx, poll.Spec{Interval: 5 * time.Second, Timeout: timeout},
		func(ctx context.Context) (bool, error) {
			data, found, err := c.GetSecret(ctx, namespace, secretName)
			if err != nil || !found {
				return false, err
			}
			token = data[corev1.ServiceAccountTokenKey]
			return len(token) > 0, nil
		})
	if !res.Satisfied() {
		return nil, fmt.Errorf("token for service account %s/%s not issued within %s", namespace, name, timeout)
	}

	return token, nil
}
