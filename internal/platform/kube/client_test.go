package kube

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestEnsureNamespace_Idempotent(t *testing.T) {
	t.Parallel()
	c := &Client{clientset: fake.NewSimpleClientset()}

	require.NoError(t, c.EnsureNamespace(context.Background(), "vault"))
	require.NoError(t, c.EnsureNamespace(context.Background(), "vault"),
		"second create of the same namespace must be a no-op")

	_, err := c.clientset.CoreV1().Namespaces().Get(context.Background(), "vault", metav1.GetOptions{})
	assert.NoError(t, err)
}

func TestGetSecret_NotFoundIsStructured(t *testing.T) {
	t.Parallel()
	c := &Client{clientset: fake.NewSimpleClientset()}

	_, found, err := c.GetSecret(context.Background(), "vault", "missing")
	require.NoError(t, err, "not-found must not be an error")
	assert.False(t, found)
}

func TestGetSecret_ReturnsData(t *testing.T) {
	t.Parallel()
	c := &Client{clientset: fake.NewSimpleClientset(&corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "creds", Namespace: "vault"},
		Data:       map[string][]byte{"token": []byte("abc")},
	})}

	data, found, err := c.GetSecret(context.Background(), "vault", "creds")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("abc"), data["token"])
}

func TestEnsureServiceAccountToken(t *testing.T) {
	t.Parallel()
	clientset := fake.NewSimpleClientset()
	c := &Client{clientset: clientset}

	// The fake control plane never populates token secrets, so seed the
	// token the way the controller would once the secret exists.
	go func() {
		for {
			secret, err := clientset.CoreV1().Secrets("vault").Get(context.Background(), "auth-delegate-token", metav1.GetOptions{})
			if err == nil {
				secret.Data = map[string][]byte{corev1.ServiceAccountTokenKey: []byte("issued-jwt")}
				clientset.CoreV1().Secrets("vault").Update(context.Background(), secret, metav1.UpdateOptions{})
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	token, err := c.EnsureServiceAccountToken(context.Background(), "vault", "auth-delegate", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("issued-jwt"), token)

	// Repeat run must reuse the existing objects.
	token, err = c.EnsureServiceAccountToken(context.Background(), "vault", "auth-delegate", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("issued-jwt"), token)
}

func TestWaitForStatefulSetReady(t *testing.T) {
	t.Parallel()
	replicas := int32(3)
	c := &Client{clientset: fake.NewSimpleClientset(&appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Name: "vault", Namespace: "vault"},
		Spec:       appsv1.StatefulSetSpec{Replicas: &replicas},
		Status:     appsv1.StatefulSetStatus{ReadyReplicas: 3},
	})}

	res := c.WaitForStatefulSetReady(context.Background(), "vault", "vault", time.Second)
	assert.True(t, res.Satisfied())
}

func TestWaitForPodsReady_Timeout(t *testing.T) {
	t.Parallel()
	c := &Client{clientset: fake.NewSimpleClientset()}

	res := c.WaitForPodsReady(context.Background(), "vault", "app=vault", 50*time.Millisecond)
	assert.False(t, res.Satisfied(), "no matching pods must not count as ready")
}
