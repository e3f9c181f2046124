package stream

import "testing"

func TestCleanContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text unchanged",
			in:   "The weather is sunny.",
			want: "The weather is sunny.",
		},
		{
			name: "thinking preamble stripped",
			in:   "<think>let me reason</think>It is 72 degrees.",
			want: "It is 72 degrees.",
		},
		{
			name: "thinking stripped and answer header truncated",
			in:   "<think>x</think>Answer is 7\nAnswer: 7",
			want: "Answer is 7",
		},
		{
			name: "final answer header truncated",
			in:   "The result is 42.\nFinal Answer: 42",
			want: "The result is 42.",
		},
		{
			name: "earliest header wins",
			in:   "Short reply.\nAnswer: one\nFinal Answer: two",
			want: "Short reply.",
		},
		{
			name: "reply opening with header survives",
			in:   "Answer: 7",
			want: "Answer: 7",
		},
		{
			name: "closing marker without opener left alone",
			in:   "odd </think> fragment",
			want: "odd </think> fragment",
		},
		{
			name: "opener without closer left alone",
			in:   "<think>never closed",
			want: "<think>never closed",
		},
		{
			name: "surrounding whitespace trimmed",
			in:   "  \n hello \n ",
			want: "hello",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanContent(tt.in); got != tt.want {
				t.Errorf("CleanContent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
