package k8s

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// Client wraps the Kubernetes client used to launch reindex jobs out of
// process. A full rebuild can run for a long time on a large inventory;
// running it as a Job keeps the API pod responsive and survivable.
type Client struct {
	clientset *kubernetes.Clientset
	namespace string
}

// NewClient creates a new Kubernetes client.
// If namespace is empty, defaults to "rentalshop".
func NewClient(namespace string) (*Client, error) {
	if namespace == "" {
		namespace = "rentalshop"
	}

	config, err := getKubeConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return &Client{
		clientset: clientset,
		namespace: namespace,
	}, nil
}

// getKubeConfig gets the Kubernetes configuration
func getKubeConfig() (*rest.Config, error) {
	// In-cluster config first, kubeconfig file as the dev fallback
	config, err := rest.InClusterConfig()
	if err == nil {
		return config, nil
	}

	var kubeconfig string
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	}
	if envKubeconfig := os.Getenv("KUBECONFIG"); envKubeconfig != "" {
		kubeconfig = envKubeconfig
	}

	config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}
	return config, nil
}

// CreateReindexJob creates a Kubernetes Job running the reindex binary.
func (c *Client) CreateReindexJob(ctx context.Context, jobName string, containerImage string) error {
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      jobName,
			Namespace: c.namespace,
			Labels: map[string]string{
				"app":          "search-reindex",
				"job-type":     "index-rebuild",
				"triggered-by": "api",
			},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:            int32Ptr(2),
			TTLSecondsAfterFinished: int32Ptr(86400),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						"app":      "search-reindex",
						"job-type": "index-rebuild",
					},
				},
				Spec: c.buildPodSpec(containerImage),
			},
		},
	}

	_, err := c.clientset.BatchV1().Jobs(c.namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// buildPodSpec builds the pod spec for the reindex job
func (c *Client) buildPodSpec(containerImage string) corev1.PodSpec {
	secretEnv := func(name, key string) corev1.EnvVar {
		return corev1.EnvVar{
			Name: name,
			ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{
						Name: "rentalshop-secrets",
					},
					Key: key,
				},
			},
		}
	}

	return corev1.PodSpec{
		RestartPolicy: corev1.RestartPolicyNever,
		Containers: []corev1.Container{
			{
				Name:    "reindex",
				Image:   containerImage,
				Command: []string{"/app/bin/reindex"},
				Env: []corev1.EnvVar{
					secretEnv("DATABASE_URL", "database-url"),
					secretEnv("ENCRYPTION_SECRET", "encryption-secret"),
					secretEnv("TYPESENSE_API_KEY", "typesense-api-key"),
					secretEnv("SENDGRID_API_KEY", "sendgrid-api-key"),
					{
						Name:  "ELASTICSEARCH_URL",
						Value: os.Getenv("ELASTICSEARCH_URL"),
					},
					{
						Name:  "TYPESENSE_URL",
						Value: os.Getenv("TYPESENSE_URL"),
					},
				},
				Resources: corev1.ResourceRequirements{
					Requests: corev1.ResourceList{
						corev1.ResourceMemory: resourceQuantity("256Mi"),
						corev1.ResourceCPU:    resourceQuantity("250m"),
					},
					Limits: corev1.ResourceList{
						corev1.ResourceMemory: resourceQuantity("1Gi"),
						corev1.ResourceCPU:    resourceQuantity("1000m"),
					},
				},
			},
		},
	}
}

// GetJobStatus gets the status of a job
func (c *Client) GetJobStatus(ctx context.Context, jobName string) (*batchv1.Job, error) {
	job, err := c.clientset.BatchV1().Jobs(c.namespace).Get(ctx, jobName, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// DeleteJob deletes a job
func (c *Client) DeleteJob(ctx context.Context, jobName string) error {
	deletePolicy := metav1.DeletePropagationForeground
	err := c.clientset.BatchV1().Jobs(c.namespace).Delete(ctx, jobName, metav1.DeleteOptions{
		PropagationPolicy: &deletePolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func int32Ptr(i int32) *int32 {
	return &i
}

func resourceQuantity(value string) resource.Quantity {
	qty, err := resource.ParseQuantity(value)
	if err != nil {
		return resource.Quantity{}
	}
	return qty
}
