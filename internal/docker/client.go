// Package docker runs one-shot test containers for the orchestration planner.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// Client wraps the Docker client with convenience methods.
type Client struct {
	cli *client.Client
}

// NewClient creates a new Docker client from the environment.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &Client{cli: cli}, nil
}

// Close closes the Docker client.
func (c *Client) Close() error {
	return c.cli.Close()
}

// Ping checks if Docker daemon is accessible.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.cli.Ping(ctx)
	return err
}

// EnsureImage pulls imageName unless it is already present locally.
func (c *Client) EnsureImage(ctx context.Context, imageName string) error {
	local, err := c.cli.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", imageName)),
	})
	if err != nil {
		return fmt.Errorf("listing images: %w", err)
	}
	if len(local) > 0 {
		return nil
	}

	reader, err := c.cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pulling image: %w", err)
	}
	defer reader.Close()

	// The pull only completes once the progress stream is drained.
	_, err = io.Copy(io.Discard, reader)
	return err
}

// ContainerConfig holds configuration for a one-shot container.
type ContainerConfig struct {
	Image  string
	Cmd    []string
	Env    []string
	Labels map[string]string
}

// RunResult is the outcome of a finished container.
type RunResult struct {
	ExitCode int64
	Output   string
}

// RunContainer creates and starts a container, waits for it to exit and
// returns its exit code and combined output. The container is removed
// afterwards.
func (c *Client) RunContainer(ctx context.Context, cfg ContainerConfig) (*RunResult, error) {
	resp, err := c.cli.ContainerCreate(ctx,
		&container.Config{
			Image:  cfg.Image,
			Cmd:    cfg.Cmd,
			Env:    cfg.Env,
			Labels: cfg.Labels,
		},
		&container.HostConfig{},
		nil, nil, "",
	)
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	defer c.cli.ContainerRemove(context.WithoutCancel(ctx), resp.ID, container.RemoveOptions{Force: true})

	waitCh, errCh := c.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNextExit)

	if err := c.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	var exitCode int64
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errCh:
		return nil, fmt.Errorf("waiting for container: %w", err)
	case status := <-waitCh:
		if status.Error != nil {
			return nil, fmt.Errorf("waiting for container: %s", status.Error.Message)
		}
		exitCode = status.StatusCode
	}

	output, err := c.logs(ctx, resp.ID)
	if err != nil {
		return nil, err
	}
	return &RunResult{ExitCode: exitCode, Output: output}, nil
}

func (c *Client) logs(ctx context.Context, containerID string) (string, error) {
	rc, err := c.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", fmt.Errorf("reading container logs: %w", err)
	}
	defer rc.Close()

	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, rc); err != nil {
		return "", fmt.Errorf("demultiplexing container logs: %w", err)
	}
	return out.String(), nil
}
