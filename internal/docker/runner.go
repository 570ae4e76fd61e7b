package docker

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// containerAPI is the part of Client the test runner uses.
type containerAPI interface {
	EnsureImage(ctx context.Context, imageName string) error
	RunContainer(ctx context.Context, cfg ContainerConfig) (*RunResult, error)
}

var _ containerAPI = (*Client)(nil)

// TestRunner runs a branch's test suite in a throwaway container. The branch
// is passed to the container as BRANCH.
type TestRunner struct {
	api     containerAPI
	image   string
	cmd     []string
	timeout time.Duration
}

// NewTestRunner creates a runner for image and command. A zero timeout
// defaults to ten minutes.
func NewTestRunner(c *Client, image string, cmd []string, timeout time.Duration) *TestRunner {
	return newTestRunner(c, image, cmd, timeout)
}

func newTestRunner(api containerAPI, image string, cmd []string, timeout time.Duration) *TestRunner {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &TestRunner{api: api, image: image, cmd: cmd, timeout: timeout}
}

// RunTests runs the suite for branch. A non-zero exit is an error carrying
// the tail of the container output.
func (r *TestRunner) RunTests(ctx context.Context, branch string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.api.EnsureImage(ctx, r.image); err != nil {
		return "", fmt.Errorf("preparing test image %s: %w", r.image, err)
	}

	res, err := r.api.RunContainer(ctx, ContainerConfig{
		Image:  r.image,
		Cmd:    r.cmd,
		Env:    []string{"BRANCH=" + branch},
		Labels: map[string]string{"voiceops.branch": branch},
	})
	if err != nil {
		return "", fmt.Errorf("running tests for %s: %w", branch, err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("tests failed with exit code %d: %s", res.ExitCode, lastLine(res.Output))
	}
	return fmt.Sprintf("Tests passed (%s)", r.image), nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
