// Package kube wraps Kubernetes API operations needed by the deployment
// pipeline: server-side apply of rendered manifests, secret access,
// service-account token provisioning, readiness waits and pod exec.
package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

// Client wraps the cluster API for deployment operations.
type Client struct {
	clientset  kubernetes.Interface
	dynamic    dynamic.Interface
	mapper     *restmapper.DeferredDiscoveryRESTMapper
	restConfig *rest.Config
}

// NewClientFromFile creates a client from a kubeconfig file.
func NewClientFromFile(kubeconfigPath string) (*Client, error) {
	restConfig, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}
	return newClient(restConfig)
}

// NewClientFromBytes creates a client from kubeconfig bytes.
func NewClientFromBytes(kubeconfig []byte) (*Client, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig from bytes: %w", err)
	}
	return newClient(restConfig)
}

func newClient(restConfig *rest.Config) (*Client, error) {
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}
	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(discoveryClient))

	return &Client{
		clientset:  clientset,
		dynamic:    dynamicClient,
		mapper:     mapper,
		restConfig: restConfig,
	}, nil
}

// EnsureNamespace creates a namespace; an existing one is a success.
func (c *Client) EnsureNamespace(ctx context.Context, name string) error {
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: name},
	}
	_, err := c.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return nil
}

// CACert returns the cluster CA bundle from the client configuration.
func (c *Client) CACert() []byte {
	return c.restConfig.CAData
}

// Host returns the API server endpoint.
func (c *Client) Host() string {
	return c.restConfig.Host
}
