package transport

import "io"

// FailureKind classifies why a Read or Write returned an error, per spec
// §4.2: only a local shutdown is silent, peer closes and transport errors
// both surface as a connectivity message to the consumer.
type FailureKind int

const (
	// FailureLocalShutdown means Disconnect was already called on this
	// Conn; the caller initiated the close and should not report it.
	FailureLocalShutdown FailureKind = iota
	// FailurePeerClosed means the remote end closed the connection
	// cleanly (EOF during a read).
	FailurePeerClosed
	// FailureTransportError covers everything else: connection reset,
	// TLS errors, timeouts.
	FailureTransportError
)

// Classify determines the kind of failure represented by err, which must
// have been returned by this Conn's Read or Write. A nil err has no
// meaningful classification and should not be passed in.
func (c *Conn) Classify(err error) FailureKind {
	if c.IsDisconnected() {
		return FailureLocalShutdown
	}
	if err == io.EOF {
		return FailurePeerClosed
	}
	return FailureTransportError
}
