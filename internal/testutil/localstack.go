// Package testutil provides LocalStack containers for integration tests
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"
)

const localStackImage = "localstack/localstack:3.8.1"

// LocalStackContainer holds a running LocalStack container and its endpoint
type LocalStackContainer struct {
	Container testcontainers.Container
	Endpoint  string
}

// SetupLocalStack starts LocalStack with the services the stores and
// discovery use. LOCALSTACK_ENDPOINT reuses an already running instance.
func SetupLocalStack(t *testing.T) *LocalStackContainer {
	t.Helper()
	return SetupLocalStackWithServices(t, "s3,dynamodb,ec2,sts")
}

// SetupLocalStackWithServices starts a LocalStack container limited to services
func SetupLocalStackWithServices(t *testing.T, services string) *LocalStackContainer {
	t.Helper()

	if endpoint := os.Getenv("LOCALSTACK_ENDPOINT"); endpoint != "" {
		return &LocalStackContainer{Endpoint: endpoint}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	env := map[string]string{
		"SERVICES": services,
		"DEBUG":    "0",
	}

	// Inside CI containers the test joins a shared network and reaches
	// LocalStack by container name instead of a mapped host port.
	if network := os.Getenv("DOCKER_NETWORK_NAME"); network != "" && inContainer() {
		name := fmt.Sprintf("localstack-netcmdb-%d-%d", os.Getpid(), time.Now().UnixNano())
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Name:           name,
				Image:          localStackImage,
				Env:            env,
				WaitingFor:     wait.ForLog("Ready").WithStartupTimeout(60 * time.Second),
				Networks:       []string{network},
				NetworkAliases: map[string][]string{network: {name}},
			},
			Started: true,
		})
		if err != nil {
			t.Fatalf("Failed to start LocalStack container: %v", err)
		}
		terminateOnCleanup(t, container)
		return &LocalStackContainer{Container: container, Endpoint: fmt.Sprintf("http://%s:4566", name)}
	}

	container, err := localstack.Run(ctx, localStackImage, testcontainers.WithEnv(env))
	if err != nil {
		t.Fatalf("Failed to start LocalStack container: %v", err)
	}
	terminateOnCleanup(t, container)

	mappedPort, err := container.MappedPort(ctx, "4566/tcp")
	if err != nil {
		t.Fatalf("Failed to get LocalStack port: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get LocalStack host: %v", err)
	}

	return &LocalStackContainer{
		Container: container,
		Endpoint:  fmt.Sprintf("http://%s:%s", host, mappedPort.Port()),
	}
}

func inContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return os.Getenv("ACT") == "true"
}

func terminateOnCleanup(t *testing.T, container testcontainers.Container) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate LocalStack container: %v", err)
		}
	})
}
