// Package stream implements the newline-delimited JSON wire protocol
// shared by the chat and agent endpoints.
//
// Both endpoints emit the same unit on the wire: one JSON object per
// line of the form {done?, message:{content}}. Ordering is
// significant — for agent replies a synthetic reasoning notice always
// precedes the answer, and done marks the terminal event.
//
// The package has two producers: Transformer re-frames the upstream
// model's raw stream for chat, and the framer functions wrap a
// completed agent reply into the same protocol.
package stream

import (
	"encoding/json"
	"io"
)

// Message carries the textual payload of an event.
type Message struct {
	Content string `json:"content"`
}

// Event is the wire unit emitted once per logical chunk. Done marks
// the terminal event of a stream.
type Event struct {
	Done    bool    `json:"done,omitempty"`
	Message Message `json:"message"`
}

// WriteEvent encodes a single event as a newline-terminated JSON line.
// When flush is non-nil it is called after the write so the line
// reaches the client immediately.
func WriteEvent(w io.Writer, flush func(), ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	if flush != nil {
		flush()
	}
	return nil
}
