// Package extract folds a build-progress event sequence down to either a
// built image id or accumulated compile-error text. The heuristic is not a
// clean parse of a well-specified protocol — it reproduces an engine-specific
// text convention from the build log lines themselves.
package extract

import (
	"strings"

	"github.com/akshayaggarwal99/codebox/internal/engine"
)

// Kind tags the three states the fold can be in.
type Kind int

const (
	Empty Kind = iota
	Id
	Error
)

// State is the fold's accumulator. The zero value is the correct initial
// state (Empty).
type State struct {
	Kind  Kind
	Value string
}

// Apply folds one BuildEvent into s, returning the next state, in this
// order: sha256 id lines always win; "Step" lines either preserve an
// already-found id or reset an in-progress error; "---" lines (cache hints)
// are ignored outright; everything else extends an Error accumulator by
// prepending the new line ahead of what's already there, reproducing the
// original tool's line-ordering quirk rather than the more natural append.
func (s State) Apply(ev *engine.BuildEvent) State {
	if ev.Kind == engine.BuildEventError {
		return s
	}

	stream := ev.Stream

	switch {
	case strings.HasPrefix(stream, "sha256"):
		return State{Kind: Id, Value: extractHash(stream)}

	case strings.Contains(stream, "Step"):
		if s.Kind == Id {
			return s
		}
		return State{Kind: Empty}

	case strings.Contains(stream, "---"):
		return s

	default:
		switch s.Kind {
		case Id:
			return s
		case Empty:
			return State{Kind: Error, Value: stream}
		default: // Error
			return State{Kind: Error, Value: stream + s.Value}
		}
	}
}

func extractHash(stream string) string {
	idx := strings.IndexByte(stream, ':')
	hash := stream
	if idx >= 0 {
		hash = stream[idx+1:]
	}
	return strings.TrimRight(hash, " \t\r\n")
}

// Fold runs Apply over every event in events, in order, starting from the
// Empty state.
func Fold(events []*engine.BuildEvent) State {
	s := State{Kind: Empty}
	for _, ev := range events {
		s = s.Apply(ev)
	}
	return s
}

// Outcome is the terminal mapping: Id(s) -> s, Error(t) -> compile error
// text t, Empty -> unreachable for a well-formed build (reported as
// ok=false so the caller can map it to Unknown).
func (s State) Outcome() (imageID string, compileError string, ok bool) {
	switch s.Kind {
	case Id:
		return s.Value, "", true
	case Error:
		return "", s.Value, true
	default:
		return "", "", false
	}
}
