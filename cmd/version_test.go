package cmd

import (
	"strings"
	"testing"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/config"
)

func TestPrintVersion(t *testing.T) {
	cfg := &config.Config{
		OllamaHost:      "http://localhost:11434",
		ModelName:       "llama3.2",
		EmbedderModel:   "nomic-embed-text",
		MaxHistoryTurns: 10,
		PostgresHost:    "db.internal",
		PostgresPort:    5432,
		PostgresDBName:  "chatbox",
	}

	var sb strings.Builder
	printVersion(&sb, cfg)
	out := sb.String()

	for _, want := range []string{
		"chat-in-a-box",
		"llama3.2",
		"nomic-embed-text",
		"db.internal:5432/chatbox",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("printVersion output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintVersion_RetrievalDisabled(t *testing.T) {
	cfg := &config.Config{
		OllamaHost:    "http://localhost:11434",
		ModelName:     "llama3.2",
		EmbedderModel: "nomic-embed-text",
	}

	var sb strings.Builder
	printVersion(&sb, cfg)

	if !strings.Contains(sb.String(), "Document store: disabled") {
		t.Errorf("expected disabled document store line, got:\n%s", sb.String())
	}
}
