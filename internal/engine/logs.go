package engine

import (
	"encoding/binary"
	"fmt"
	"io"
)

// LogStream tags which of the container's streams a LogFrame's payload came
// from, taken from byte 0 of the engine's 8-byte frame header.
type LogStream int

const (
	LogStdin LogStream = iota
	LogStdout
	LogStderr
)

// LogFrame is one demultiplexed chunk of a container's combined log stream.
type LogFrame struct {
	Stream  LogStream
	Payload []byte
}

// LogDecoder demultiplexes the engine's attach/logs byte stream: each frame
// is an 8-byte header (byte 0 is the stream tag, bytes 4-7 a big-endian
// uint32 payload length) followed by that many payload bytes.
type LogDecoder struct {
	r io.Reader
}

// NewLogDecoder wraps r, the hijacked body of an attach/logs response.
func NewLogDecoder(r io.Reader) *LogDecoder {
	return &LogDecoder{r: r}
}

// Next reads one frame. It returns io.EOF only when the stream ends exactly
// on a frame boundary; an EOF in the middle of a header or payload is
// reported as an error rather than a partial frame.
func (d *LogDecoder) Next() (*LogFrame, error) {
	var header [8]byte
	if _, err := io.ReadFull(d.r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read log frame header: %w", err)
	}

	stream, err := streamFromTag(header[0])
	if err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[4:8])
	payload := make([]byte, size)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return nil, fmt.Errorf("read log frame payload: %w", err)
	}

	return &LogFrame{Stream: stream, Payload: payload}, nil
}

func streamFromTag(tag byte) (LogStream, error) {
	switch tag {
	case 0:
		return LogStdin, nil
	case 1:
		return LogStdout, nil
	case 2:
		return LogStderr, nil
	default:
		return 0, fmt.Errorf("read log frame header: unrecognized stream tag %d", tag)
	}
}
