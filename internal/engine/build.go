package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// BuildEventKind tags the two shapes a build-progress record can take.
type BuildEventKind int

const (
	// BuildEventStep is a textual progress line ("Step n/m ...",
	// "---> cached", a raw compiler line, or an image hash line).
	BuildEventStep BuildEventKind = iota
	// BuildEventError is a structured error delimiter the engine emits
	// alongside the final failing Step line.
	BuildEventError
)

// ErrorDetail is the structured payload of a BuildEventError record.
type ErrorDetail struct {
	Code    int
	Message string
}

// BuildEvent is one parsed line of the engine's build-progress stream.
type BuildEvent struct {
	Kind        BuildEventKind
	Stream      string
	ErrorDetail ErrorDetail
	Error       string
}

type rawBuildEvent struct {
	Stream      *string          `json:"stream"`
	ErrorDetail *rawErrorDetail  `json:"errorDetail"`
	Error       *string          `json:"error"`
}

type rawErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (r rawBuildEvent) toEvent() (*BuildEvent, error) {
	if r.Stream != nil {
		return &BuildEvent{Kind: BuildEventStep, Stream: *r.Stream}, nil
	}
	if r.ErrorDetail != nil && r.Error != nil {
		return &BuildEvent{
			Kind:        BuildEventError,
			ErrorDetail: ErrorDetail{Code: r.ErrorDetail.Code, Message: r.ErrorDetail.Message},
			Error:       *r.Error,
		}, nil
	}
	return nil, fmt.Errorf("build stream: unrecognized record shape")
}

// BuildDecoder turns the raw byte stream returned by the engine's build
// endpoint into a lazy, restartable-only-from-start sequence of BuildEvent
// values: append each chunk, repeatedly try to parse one JSON value off the
// buffer prefix, and discard exactly the bytes consumed.
type BuildDecoder struct {
	r        io.Reader
	buf      bytes.Buffer
	finished bool
	readBuf  [4096]byte
}

// NewBuildDecoder wraps r, the hijacked body of a build-image response.
func NewBuildDecoder(r io.Reader) *BuildDecoder {
	return &BuildDecoder{r: r}
}

// Next pulls the next BuildEvent, blocking on r only when the buffer can't
// yield a complete value. Returns io.EOF once the stream is exhausted
// cleanly.
func (d *BuildDecoder) Next() (*BuildEvent, error) {
	for {
		if d.buf.Len() > 0 {
			ev, consumed, err := parseOneBuildEvent(d.buf.Bytes())
			if err == nil {
				d.buf.Next(consumed)
				return ev, nil
			}
			if !errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("decode build event: %w", err)
			}
			// Incomplete record; fall through to read more, unless the
			// upstream is already closed.
		}

		if d.finished {
			if len(bytes.TrimSpace(d.buf.Bytes())) == 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("decode build event: truncated stream: %q", d.buf.Bytes())
		}

		n, err := d.r.Read(d.readBuf[:])
		if n > 0 {
			d.buf.Write(d.readBuf[:n])
		}
		if err != nil {
			if err == io.EOF {
				d.finished = true
				continue
			}
			return nil, fmt.Errorf("read build stream: %w", err)
		}
	}
}

// parseOneBuildEvent attempts to decode exactly one JSON value off the
// prefix of data, returning the number of bytes it consumed. A value that
// looks truncated (ends mid-object) is reported as io.ErrUnexpectedEOF so
// the caller knows to wait for more input rather than fail outright.
func parseOneBuildEvent(data []byte) (*BuildEvent, int, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var raw rawBuildEvent
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, 0, io.ErrUnexpectedEOF
		}
		return nil, 0, err
	}
	ev, err := raw.toEvent()
	if err != nil {
		return nil, 0, err
	}
	return ev, int(dec.InputOffset()), nil
}
