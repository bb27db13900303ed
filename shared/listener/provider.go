package listener

import (
	"fmt"
	"net"
)

type Provider interface {
	Create() (net.Listener, error)
	Close() error
	ActivationType() string
}

// DetectProvider picks the listener source for the server. An explicit unix
// socket wins over an explicit TCP address, which wins over systemd socket
// activation.
func DetectProvider(httpAddress, unixSocket string) (Provider, error) {
	if unixSocket != "" {
		return NewUnixSocketProvider(unixSocket), nil
	}

	if httpAddress != "" {
		return NewTCPListenerProvider(httpAddress), nil
	}

	if IsSystemdSocketActivation() {
		return NewSystemdSocketProvider(), nil
	}

	return nil, fmt.Errorf("no valid listener has been detected. Specify either a unix socket, a tcp address or use systemd socket activation")
}
