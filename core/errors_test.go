package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"transient", fmt.Errorf("%w: 429", ErrTransientExternal), KindTransient},
		{
			name: "unavailable wraps transient",
			err:  fmt.Errorf("%w after 3 attempts: %w", ErrServiceUnavailable, fmt.Errorf("%w: 503", ErrTransientExternal)),
			want: KindServiceUnavailable,
		},
		{"terminal", fmt.Errorf("%w: 400", ErrTerminalExternal), KindTerminal},
		{"parse", NewParseError("not json", errors.New("invalid character")), KindParse},
		{"credits", fmt.Errorf("content: %w", ErrInsufficientCredits), KindInsufficientCredits},
		{"bootstrap", ErrBootstrapFailed, KindBootstrapFailed},
		{"unknown tenant", fmt.Errorf("%w: 42", ErrUnknownTenant), KindUnknownTenant},
		{"unreachable", ErrCrawlUnreachable, KindCrawlUnreachable},
		{"empty", ErrEmptyContent, KindEmptyContent},
		{"validation", fmt.Errorf("%w: %w", ErrInvalidMemory, ErrMissingVector), KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestParseError_KeepsRawText(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := fmt.Errorf("generate content: %w", NewParseError("{\"content\":", cause))

	var pe *ParseError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "{\"content\":", pe.Raw)
	assert.True(t, errors.Is(err, ErrParse))
	assert.True(t, errors.Is(err, cause))
}
