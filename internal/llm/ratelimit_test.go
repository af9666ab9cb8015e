package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewThrottled(t *testing.T) {
	gen := &fakeGenerator{text: "{}"}

	t.Run("unlimited returns the generator itself", func(t *testing.T) {
		assert.Same(t, gen, NewThrottled(gen, 0, nil).(*fakeGenerator))
	})

	t.Run("first call passes immediately", func(t *testing.T) {
		g := NewThrottled(gen, 60, nil)
		resp, err := g.Generate(context.Background(), GenerateRequest{})
		require.NoError(t, err)
		assert.Equal(t, "{}", resp.Text)
	})

	t.Run("canceled context stops the wait", func(t *testing.T) {
		g := NewThrottled(gen, 1, nil)
		_, err := g.Generate(context.Background(), GenerateRequest{})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = g.Generate(ctx, GenerateRequest{})
		assert.Error(t, err)
	})
}
