package listener

import (
	"fmt"
	"net"
)

// TCPProvider listens on a plain TCP address. The serve command defaults
// it to loopback so the daemon stays host-local unless asked otherwise.
type TCPProvider struct {
	addr string
}

var _ Provider = (*TCPProvider)(nil)

func NewTCPListenerProvider(addr string) *TCPProvider {
	return &TCPProvider{addr: addr}
}

func (p *TCPProvider) Create() (net.Listener, error) {
	l, err := net.Listen("tcp", p.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", p.addr, err)
	}
	return l, nil
}

// Close is a no-op, the http server owns the listener once created.
func (p *TCPProvider) Close() error {
	return nil
}

func (p *TCPProvider) ActivationType() string {
	return "tcp"
}
