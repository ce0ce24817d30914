package monitor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const zpoolTimeout = 30 * time.Second

// ZpoolSource lists pools and their health by running zpool(8).
type ZpoolSource struct {
	command string
}

// NewZpoolSource creates a source that runs the given zpool binary.
// An empty command means "zpool" from PATH.
func NewZpoolSource(command string) *ZpoolSource {
	if command == "" {
		command = "zpool"
	}
	return &ZpoolSource{command: command}
}

// Pools returns every imported pool with its current health.
func (z *ZpoolSource) Pools(ctx context.Context) ([]PoolStatus, error) {
	out, err := runCommand(ctx, z.command, "list", "-H", "-o", "name,health")
	if err != nil {
		return nil, fmt.Errorf("listing pools: %w", err)
	}
	return parseZpoolList(out)
}

// parseZpoolList parses the scripted (-H) output of
// "zpool list -o name,health": one pool per line, tab separated.
func parseZpoolList(data []byte) ([]PoolStatus, error) {
	var pools []PoolStatus
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("unexpected zpool output line %q", line)
		}
		health, err := ParseHealth(fields[1])
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", fields[0], err)
		}
		pools = append(pools, PoolStatus{Name: fields[0], Health: health})
	}
	return pools, scanner.Err()
}

// runCommand executes a command with a timeout and returns its stdout.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, zpoolTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %v: %w (stderr: %s)", name, args, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
