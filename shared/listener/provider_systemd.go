package listener

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

// systemd hands activated sockets to the service starting at fd 3
// (SD_LISTEN_FDS_START). The daemon takes exactly one.
const systemdSocketFD = 3

type SystemdSocketProvider struct{}

var _ Provider = (*SystemdSocketProvider)(nil)

func NewSystemdSocketProvider() *SystemdSocketProvider {
	return &SystemdSocketProvider{}
}

func (p *SystemdSocketProvider) Create() (net.Listener, error) {
	count, err := activatedSocketCount()
	if err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, fmt.Errorf("no sockets passed from systemd")
	}

	file := os.NewFile(systemdSocketFD, "systemd-socket")
	if file == nil {
		return nil, fmt.Errorf("no socket passed from systemd on FD %d", systemdSocketFD)
	}

	// net.FileListener rejects descriptors that are not listening sockets.
	l, err := net.FileListener(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener from systemd socket: %w", err)
	}
	return l, nil
}

func activatedSocketCount() (int, error) {
	raw := os.Getenv("LISTEN_FDS")
	if raw == "" {
		return 0, fmt.Errorf("no LISTEN_FDS environment variable from systemd")
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid LISTEN_FDS value: %w", err)
	}
	return count, nil
}

func (p *SystemdSocketProvider) Close() error {
	return nil
}

func (p *SystemdSocketProvider) ActivationType() string {
	return "systemd"
}

// IsSystemdSocketActivation reports whether systemd launched this process
// with sockets. LISTEN_PID must name this pid; a stale value inherited by
// a child does not count.
func IsSystemdSocketActivation() bool {
	if os.Getenv("LISTEN_FDS") == "" {
		return false
	}
	return os.Getenv("LISTEN_PID") == strconv.Itoa(os.Getpid())
}
