package listener

import (
	"bytes"
	"io"
)

// lineEndingConn normalizes line endings at the transport boundary so the
// session layer only ever sees \n. Telnet clients send \r\n, SSH clients
// without a PTY send \r, and both expect \r\n back.
type lineEndingConn struct {
	rw io.ReadWriter
}

func newCRLFReadWriter(rw io.ReadWriter) io.ReadWriter {
	return &lineEndingConn{rw: rw}
}

var (
	crlf = []byte("\r\n")
	cr   = []byte("\r")
	lf   = []byte("\n")
)

func (c *lineEndingConn) Read(p []byte) (int, error) {
	n, err := c.rw.Read(p)
	if n == 0 {
		return n, err
	}
	normalized := bytes.ReplaceAll(p[:n], crlf, lf)
	normalized = bytes.ReplaceAll(normalized, cr, lf)
	return copy(p, normalized), err
}

// Write reports the pre-expansion length so callers see the count they
// asked for.
func (c *lineEndingConn) Write(p []byte) (int, error) {
	_, err := c.rw.Write(bytes.ReplaceAll(p, lf, crlf))
	return len(p), err
}
