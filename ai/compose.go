package ai

import (
	"errors"
	"io"
)

type composite struct {
	embedder   Embedder
	generators []Generator
	closers    []io.Closer
}

// Compose assembles a Provider from services built by different backends,
// for example a Gemini embedder with an OpenAI-compatible generation fallback.
// Close closes every closer and joins their errors.
func Compose(embedder Embedder, generators []Generator, closers ...io.Closer) Provider {
	return &composite{embedder: embedder, generators: generators, closers: closers}
}

func (c *composite) Embedder() Embedder { return c.embedder }

func (c *composite) Generators() []Generator { return c.generators }

func (c *composite) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
