package remote

import (
	"context"
	"errors"
	"net"
	"strings"
)

// IsNetworkError reports whether an error is a connectivity-class failure.
// The sync engine retries these forever and keeps them out of the error
// logs: losing the network is a condition the system is designed to
// tolerate, not an incident.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "network is unreachable") ||
		strings.Contains(errMsg, "i/o timeout") ||
		strings.Contains(errMsg, "unexpected EOF")
}
