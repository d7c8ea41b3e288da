package cloudlink

import (
	"errors"
	"io"
	"net"
	"os"
)

var (
	// ErrMissingSendAddr is returned when an outbound operation runs
	// without a configured send host and port.
	ErrMissingSendAddr = errors.New("send host and port must be set before making this operation")

	// ErrMissingReceiveAddr is returned when an inbound operation runs
	// without a configured receive host and port.
	ErrMissingReceiveAddr = errors.New("receive host and port must be set before making this operation")

	// ErrSMSNotSupported is returned by SendSMS; this transport cannot
	// carry SMS.
	ErrSMSNotSupported = errors.New("cannot send SMS via custom cloud")
)

// isTransientNetFault reports whether err is an I/O-class failure of the
// transport. Transient faults are recovered locally: logged, answered
// with an empty result, and followed by a forced network disconnect on
// cellular-class networks. Everything else propagates to the caller.
func isTransientNetFault(err error) bool {
	if err == nil {
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	var serr *os.SyscallError
	if errors.As(err, &serr) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}
