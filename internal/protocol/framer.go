package protocol

import (
	"bytes"
	"io"
)

// readChunkSize is how much the stream framer asks the transport for at a
// time. Quiz messages are small; a single read usually carries several.
const readChunkSize = 1024

// StreamFramer splits a stream transport's byte flow back into discrete
// message payloads. TCP preserves no message boundaries, so the framer
// buffers partial reads across calls and hands back one newline-delimited
// payload at a time, keeping any trailing fragment for the next call.
//
// A StreamFramer owns its buffer and must only be used by the goroutine
// that owns the connection.
type StreamFramer struct {
	conn    io.Reader
	buf     []byte
	scratch [readChunkSize]byte
}

func NewStreamFramer(conn io.Reader) *StreamFramer {
	return &StreamFramer{conn: conn}
}

// Next blocks until a full message payload is available and returns it
// without its trailing newline. Blank lines are skipped. Once the transport
// fails (typically io.EOF on disconnect), any unterminated trailing
// fragment is discarded and the error is returned as-is.
func (f *StreamFramer) Next() ([]byte, error) {
	for {
		if i := bytes.IndexByte(f.buf, '\n'); i >= 0 {
			payload := f.buf[:i]
			f.buf = f.buf[i+1:]
			if len(bytes.TrimSpace(payload)) == 0 {
				continue
			}
			return payload, nil
		}

		n, err := f.conn.Read(f.scratch[:])
		if n > 0 {
			// Data first; a read error alongside it will surface on the
			// next call per the io.Reader contract.
			f.buf = append(f.buf, f.scratch[:n]...)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}

// SplitDatagram breaks one datagram into the message payloads it carries.
// Clients of the datagram dialect may pack several newline-joined messages
// into a single send. Loss, duplication, and reordering across datagrams
// are all possible and left to the caller's semantics.
func SplitDatagram(data []byte) [][]byte {
	var payloads [][]byte
	for _, part := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(part)) == 0 {
			continue
		}
		payloads = append(payloads, part)
	}
	return payloads
}
