package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/log"
)

// readBufferSize is the per-Read buffer for the upstream stream. One
// Read usually carries a handful of complete JSON lines.
const readBufferSize = 32 * 1024

// Transformer re-frames the upstream model's newline-delimited JSON
// stream into the client protocol: each parsed line's content is
// cleaned with CleanContent and re-encoded as an Event line.
//
// The transform operates per chunk: each Read's bytes are split on
// newlines and parsed line by line. A line that fails to parse —
// malformed output or a JSON object split across two Reads — is
// dropped silently and the stream continues. This mirrors the
// upstream producer, which writes whole lines per chunk in practice.
// The transform itself never fails; only writer errors (client gone)
// and context cancellation terminate it early.
type Transformer struct {
	logger log.Logger
}

// NewTransformer creates a Transformer. A nil logger discards logs.
func NewTransformer(logger log.Logger) *Transformer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Transformer{logger: logger}
}

// upstreamLine is the subset of the upstream chat event we consume.
type upstreamLine struct {
	Done    bool `json:"done"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Pipe copies events from src to dst until src is exhausted or ctx is
// canceled. Output event order matches input order; no buffering
// happens across events. flush may be nil.
func (t *Transformer) Pipe(ctx context.Context, src io.Reader, dst io.Writer, flush func()) error {
	buf := make([]byte, readBufferSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if err := t.writeChunk(dst, flush, buf[:n]); err != nil {
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			// Upstream read failures after streaming began cannot be
			// turned into an HTTP error anymore; log and end the stream.
			t.logger.Warn("upstream stream read failed", "error", readErr)
			return nil
		}
	}
}

// writeChunk splits one chunk into lines, parses each, and forwards
// the cleaned events. Unparseable lines are skipped.
func (t *Transformer) writeChunk(dst io.Writer, flush func(), chunk []byte) error {
	for _, line := range bytes.Split(chunk, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var in upstreamLine
		if err := json.Unmarshal(line, &in); err != nil {
			t.logger.Debug("dropping unparseable stream line", "error", err)
			continue
		}

		ev := Event{
			Done:    in.Done,
			Message: Message{Content: CleanContent(in.Message.Content)},
		}
		if err := WriteEvent(dst, flush, ev); err != nil {
			return err
		}
	}
	return nil
}
