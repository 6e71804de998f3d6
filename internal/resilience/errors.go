package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// Transient marks an error as safe to retry.
type Transient struct {
	Err error
}

func (e *Transient) Error() string { return e.Err.Error() }
func (e *Transient) Unwrap() error { return e.Err }

// MarkTransient wraps an error as transient.
func MarkTransient(err error) *Transient {
	return &Transient{Err: err}
}

// IsTransient reports whether the error is explicitly marked transient
// or matches common recoverable patterns from the sqlite driver, pgx
// and the HTTP keyword source.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var t *Transient
	if errors.As(err, &t) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"database is locked", // sqlite busy
		"sqlite_busy",
		"connection reset by peer",
		"connection refused",
		"broken pipe",
		"i/o timeout",
		"no such host",
		"tls handshake timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status from the keyword
// source is worth retrying.
func IsTransientHTTPStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
