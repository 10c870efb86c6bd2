package vitembed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInputEmbeddingComposition runs the canonical walkthrough example:
// four 3x28x28 images, 14x14 patches, d_emb 50. Each image yields
// (28/14)*(28/14) = 4 patches, plus one class token, so the final
// sequence is (4, 5, 50).
func TestInputEmbeddingComposition(t *testing.T) {
	ie, err := NewInputEmbedding(Config{
		Patch:      SquarePatch(14),
		EmbedDim:   50,
		InChannels: 3,
	})
	require.NoError(t, err)

	out, err := ie.Forward(New(4, 3, 28, 28))
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 50}, out.Shape())

	n, err := ie.SequenceLength(28, 28)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = ie.SequenceLength(30, 28)
	require.Error(t, err)
}

func TestInputEmbeddingChannelDefault(t *testing.T) {
	ie, err := NewInputEmbedding(Config{Patch: SquarePatch(2), EmbedDim: 6})
	require.NoError(t, err)

	// InChannels 0 means RGB.
	_, err = ie.Forward(New(1, 3, 4, 4))
	require.NoError(t, err)
	_, err = ie.Forward(New(1, 1, 4, 4))
	require.Error(t, err)
}

func TestInputEmbeddingConfigErrors(t *testing.T) {
	_, err := NewInputEmbedding(Config{Patch: SquarePatch(0), EmbedDim: 6})
	require.Error(t, err)

	_, err = NewInputEmbedding(Config{Patch: SquarePatch(2), EmbedDim: 0})
	require.Error(t, err)
}

// TestInputEmbeddingClassTokenVisible checks the composed pipeline end to
// end: after setting the class token, position 0 of every output sequence
// is exactly that token (the fresh position encoding adds zero).
func TestInputEmbeddingClassTokenVisible(t *testing.T) {
	ie, err := NewInputEmbedding(Config{Patch: SquarePatch(2), EmbedDim: 3, InChannels: 1})
	require.NoError(t, err)
	copy(ie.Class.Token(), []float64{7, 8, 9})

	out, err := ie.Forward(New(2, 1, 4, 4))
	require.NoError(t, err)
	for b := 0; b < 2; b++ {
		assert.Equal(t, 7.0, out.At(b, 0, 0))
		assert.Equal(t, 8.0, out.At(b, 0, 1))
		assert.Equal(t, 9.0, out.At(b, 0, 2))
	}
}

func TestInputEmbeddingParameterCount(t *testing.T) {
	ie, err := NewInputEmbedding(Config{
		Patch:      SquarePatch(14),
		EmbedDim:   50,
		InChannels: 3,
	})
	require.NoError(t, err)

	// weight 14*14*3*50 + bias 50 + class token 50 + position bias 50.
	assert.Equal(t, 29400+150, ie.NumParameters())
	assert.Len(t, ie.Parameters(), 4)
}

func TestInputEmbeddingDeterminism(t *testing.T) {
	ie, err := NewInputEmbedding(Config{Patch: SquarePatch(4), EmbedDim: 12, InChannels: 3})
	require.NoError(t, err)

	img := New(2, 3, 8, 8)
	for i := range img.Data() {
		img.Data()[i] = float64((i*31)%17) / 16
	}

	first, err := ie.Forward(img)
	require.NoError(t, err)
	second, err := ie.Forward(img)
	require.NoError(t, err)
	assert.True(t, Equal(first, second), "repeated forward calls must be bit-identical")
}
