package stream

import (
	"fmt"
	"io"
)

// Frames builds the two-phase event sequence for a completed agent
// reply: a synthetic reasoning notice, then the answer verbatim with
// the terminal marker. The notice carries no information from the
// agent itself; it exists so clients can render a thinking phase
// before the answer arrives.
func Frames(agentType, answer string) []Event {
	return []Event{
		{Message: Message{Content: fmt.Sprintf("Processing %s query...", agentType)}},
		{Done: true, Message: Message{Content: answer}},
	}
}

// WriteFrames emits the two-phase sequence to w and returns on the
// first write failure. Both events are produced synchronously — by
// the time this is called the agent has already fully exited, so
// there is nothing to interleave or cancel mid-flight.
func WriteFrames(w io.Writer, flush func(), agentType, answer string) error {
	for _, ev := range Frames(agentType, answer) {
		if err := WriteEvent(w, flush, ev); err != nil {
			return err
		}
	}
	return nil
}
