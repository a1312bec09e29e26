package testutils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/goto/salt/log"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const logLevelDebug = "debug"

// ErrDockerUnavailable is returned when no docker daemon can be reached.
var ErrDockerUnavailable = errors.New("docker daemon is unavailable")

// SkipIfNoDocker skips t when err says docker could not be reached.
func SkipIfNoDocker(t *testing.T, err error) {
	t.Helper()
	if errors.Is(err, ErrDockerUnavailable) {
		t.Skip(err.Error())
	}
}

func newPool() (*dockertest.Pool, error) {
	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDockerUnavailable, err)
	}
	if err := pool.Client.Ping(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDockerUnavailable, err)
	}
	return pool, nil
}

func runContainer(t *testing.T, pool *dockertest.Pool, opts *dockertest.RunOptions, logger log.Logger) (*dockertest.Resource, error) {
	t.Helper()

	// pulls an image, creates a container based on it and runs it
	resource, err := pool.RunWithOptions(opts, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("start %s resource: %w", opts.Repository, err)
	}

	// attach terminal logger to container if exists
	// for debugging purpose
	if logger.Level() == logLevelDebug {
		logWaiter, err := pool.Client.AttachToContainerNonBlocking(docker.AttachToContainerOptions{
			Container:    resource.Container.ID,
			OutputStream: logger.Writer(),
			ErrorStream:  logger.Writer(),
			Stderr:       true,
			Stdout:       true,
			Stream:       true,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to %s container log output: %w", opts.Repository, err)
		}
		t.Cleanup(func() {
			if err := logWaiter.Close(); err != nil {
				logger.Error("could not close container log", "error", err)
			}
			if err := logWaiter.Wait(); err != nil {
				logger.Error("could not wait for container log to close", "error", err)
			}
		})
	}

	// Tell docker to hard kill the container in 120 seconds
	if err := resource.Expire(120); err != nil {
		return nil, err
	}

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Fatal(err)
		}
	})
	return resource, nil
}
