package sandbox

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

// MountPoint is where the sample directory appears inside the container.
const MountPoint = "/samples"

// TimeoutExitCode is reported for containers killed at the deadline.
const TimeoutExitCode = 124

type RunOpts struct {
	Image       string
	Command     []string
	SampleDir   string
	Timeout     time.Duration
	CPULimit    float64
	MemoryLimit int64
}

type RunResult struct {
	Output   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// RunContainer runs one tool invocation in a throwaway container with the
// sample directory mounted read-only and networking disabled. The container
// is allocated a TTY so stdout and stderr arrive as one stream.
func RunContainer(ctx context.Context, opts *RunOpts) (*RunResult, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:     mount.TypeBind,
			Source:   opts.SampleDir,
			Target:   MountPoint,
			ReadOnly: true,
		}},
		Init:        &initTrue,
		NetworkMode: "none",
	}
	if opts.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(opts.CPULimit * 1e9)
	}
	if opts.MemoryLimit > 0 {
		hostCfg.Memory = opts.MemoryLimit
	}

	containerCfg := &container.Config{
		Image:           opts.Image,
		Cmd:             opts.Command,
		WorkingDir:      MountPoint,
		Tty:             true,
		NetworkDisabled: true,
		Labels:          map[string]string{"crosscheck": "true"},
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	start := time.Now()
	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	waitResult := cli.ContainerWait(timeoutCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	errCh := waitResult.Error
	for {
		select {
		case err := <-errCh:
			if err == nil {
				errCh = nil
				continue
			}
			cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
			if ctx.Err() != nil {
				return nil, fmt.Errorf("waiting for container: %w", ctx.Err())
			}
			if timeoutCtx.Err() == nil {
				return nil, fmt.Errorf("waiting for container: %w", err)
			}
			return &RunResult{
				Output:   readLogs(cli, containerID),
				ExitCode: TimeoutExitCode,
				TimedOut: true,
				Duration: time.Since(start),
			}, nil
		case status := <-waitResult.Result:
			return &RunResult{
				Output:   readLogs(cli, containerID),
				ExitCode: int(status.StatusCode),
				Duration: time.Since(start),
			}, nil
		}
	}
}

func readLogs(cli *client.Client, containerID string) string {
	logReader, _ := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
	if logReader == nil {
		return ""
	}
	defer logReader.Close()
	data, _ := io.ReadAll(logReader)
	return strings.ReplaceAll(string(data), "\r\n", "\n")
}
