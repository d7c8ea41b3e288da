package transport

import (
	"errors"
	"io"
	"net"
	"time"
)

// Drain reads from conn until the peer closes the connection, the socket
// errors, or the cumulative elapsed time exceeds timeout. A timeout of
// zero waits indefinitely for one of the other two stop conditions.
//
// Reads happen in MaxReceiveBytes chunks under read deadlines of at most
// pollSlice, so the overall timeout is honored to within one slice. The
// accumulated bytes are returned even when an error cut the drain short.
//
// This is deliberately not a framed read: the protocol's only message
// boundary is the peer closing or going idle within the window. A slow
// sender is indistinguishable from end-of-message.
func Drain(conn net.Conn, timeout time.Duration) ([]byte, error) {
	start := time.Now()
	chunk := make([]byte, MaxReceiveBytes)
	var recv []byte

	for {
		slice := pollSlice
		if timeout > 0 {
			left := timeout - time.Since(start)
			if left <= 0 {
				break
			}
			if left < slice {
				slice = left
			}
		}

		if err := conn.SetReadDeadline(time.Now().Add(slice)); err != nil {
			return recv, err
		}

		n, err := conn.Read(chunk)
		if n > 0 {
			recv = append(recv, chunk[:n]...)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			// Peer closed; the message is complete.
			break
		}
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			// Idle slice; loop back to re-check the overall timeout.
			continue
		}
		return recv, err
	}

	return recv, nil
}
