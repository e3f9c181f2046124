package agent

import (
	"context"
	"errors"
	"fmt"
)

// Type identifies one agent behavior from the closed set the API
// accepts. Anything else fails validation before dispatch.
type Type string

const (
	TypeWeather      Type = "weather"
	TypeSearch       Type = "search"
	TypeSummarize    Type = "summarize"
	TypeProduct      Type = "product"
	TypeStoreLocator Type = "storelocator"
)

// ErrUnknownType reports an agent type outside the closed set.
var ErrUnknownType = errors.New("unknown agent type")

// ParseType validates a wire-level agent type string.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeWeather, TypeSearch, TypeSummarize, TypeProduct, TypeStoreLocator:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// Invocation is one agent request. It is transient: constructed per
// request and never persisted.
type Invocation struct {
	Type       Type
	Query      string
	Parameters map[string]any
}

// Agent handles one agent type. Execute returns the finished textual
// answer; a failed invocation is surfaced as a single error with no
// retry.
type Agent interface {
	Type() Type
	Execute(ctx context.Context, query string, params map[string]any) (string, error)
}
