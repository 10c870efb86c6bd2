package vitembed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPatchEmbeddingConfigErrors(t *testing.T) {
	_, err := NewPatchEmbedding(PatchSize{Height: 0, Width: 4}, 8, 3)
	require.Error(t, err, "zero patch height must be rejected")

	_, err = NewPatchEmbedding(SquarePatch(-2), 8, 3)
	require.Error(t, err, "negative patch size must be rejected")

	_, err = NewPatchEmbedding(SquarePatch(4), 0, 3)
	require.Error(t, err, "zero embedding dimension must be rejected")

	_, err = NewPatchEmbedding(SquarePatch(4), 8, 0)
	require.Error(t, err, "zero channel count must be rejected")
}

func TestPatchEmbeddingOutputShape(t *testing.T) {
	pe, err := NewPatchEmbedding(SquarePatch(4), 10, 3)
	require.NoError(t, err)

	// 8x8 image with 4x4 patches: a 2x2 grid, 4 patches.
	out, err := pe.Forward(New(2, 3, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 10}, out.Shape())

	// Rectangular patches on a rectangular image.
	pe, err = NewPatchEmbedding(PatchSize{Height: 2, Width: 3}, 5, 1)
	require.NoError(t, err)
	out, err = pe.Forward(New(1, 1, 4, 9))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 6, 5}, out.Shape(), "(4/2)*(9/3) = 6 patches")
}

func TestPatchEmbeddingShapeErrors(t *testing.T) {
	pe, err := NewPatchEmbedding(SquarePatch(14), 50, 3)
	require.NoError(t, err)

	_, err = pe.Forward(New(1, 3, 30, 28))
	require.Error(t, err, "height 30 is not divisible by 14")

	_, err = pe.Forward(New(1, 3, 28, 30))
	require.Error(t, err, "width 30 is not divisible by 14")

	_, err = pe.Forward(New(1, 4, 28, 28))
	require.Error(t, err, "channel count 4 does not match configured 3")

	_, err = pe.Forward(New(3, 28, 28))
	require.Error(t, err, "rank-3 input is not an image batch")
}

// TestPatchEmbeddingGridOrdering checks row-major patch ordering with the
// smallest possible configuration: 1x1 patches, 1 channel, d_emb 1, and
// the projection forced to the identity. Each pixel is then its own patch
// and the output sequence must read the image in reading order.
func TestPatchEmbeddingGridOrdering(t *testing.T) {
	pe, err := NewPatchEmbedding(SquarePatch(1), 1, 1)
	require.NoError(t, err)
	pe.Weight().Set(0, 0, 1)

	// 2x2 image: each patch filled with a distinct constant.
	//   1 2
	//   3 4
	img := New(1, 1, 2, 2)
	img.Set(1, 0, 0, 0, 0)
	img.Set(2, 0, 0, 0, 1)
	img.Set(3, 0, 0, 1, 0)
	img.Set(4, 0, 0, 1, 1)

	out, err := pe.Forward(img)
	require.NoError(t, err)

	// Patch (row=0, col=1) must land at sequence index 1.
	assert.Equal(t, 2.0, out.At(0, 1, 0))
	assert.Equal(t, []float64{1, 2, 3, 4}, out.Data(), "row-major over the patch grid")
}

// TestPatchEmbeddingFlatteningConvention pins down the documented pixel
// ordering inside one patch: channel-major, then patch row, then patch
// column. With the weight forced to the identity, the single output row
// is exactly the flattened patch.
func TestPatchEmbeddingFlatteningConvention(t *testing.T) {
	// One 2x2 patch with 2 channels: patchDim 8, identity projection.
	pe, err := NewPatchEmbedding(SquarePatch(2), 8, 2)
	require.NoError(t, err)
	pe.Weight().Zero()
	for i := 0; i < 8; i++ {
		pe.Weight().Set(i, i, 1)
	}

	// Fill pixel (c, py, px) with its expected flat index (c*2+py)*2+px.
	img := New(1, 2, 2, 2)
	for c := 0; c < 2; c++ {
		for py := 0; py < 2; py++ {
			for px := 0; px < 2; px++ {
				img.Set(float64((c*2+py)*2+px), 0, c, py, px)
			}
		}
	}

	out, err := pe.Forward(img)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7}, out.Data())
}

func TestPatchEmbeddingBiasBroadcast(t *testing.T) {
	pe, err := NewPatchEmbedding(SquarePatch(1), 2, 1)
	require.NoError(t, err)
	pe.Weight().Zero()
	pe.Bias()[0] = 0.5
	pe.Bias()[1] = -1.0

	out, err := pe.Forward(New(1, 1, 2, 2))
	require.NoError(t, err)

	// With a zero weight, every position is exactly the bias.
	for n := 0; n < 4; n++ {
		assert.Equal(t, 0.5, out.At(0, n, 0))
		assert.Equal(t, -1.0, out.At(0, n, 1))
	}
}

func TestPatchEmbeddingDeterminism(t *testing.T) {
	// Construction is a pure function of configuration.
	a, err := NewPatchEmbedding(SquarePatch(4), 8, 3)
	require.NoError(t, err)
	b, err := NewPatchEmbedding(SquarePatch(4), 8, 3)
	require.NoError(t, err)
	assert.Equal(t, a.Weight().RawMatrix().Data, b.Weight().RawMatrix().Data)

	// Repeated forward calls are bit-identical.
	img := New(2, 3, 8, 8)
	for i := range img.Data() {
		img.Data()[i] = float64(i%7) * 0.25
	}
	first, err := a.Forward(img)
	require.NoError(t, err)
	second, err := a.Forward(img)
	require.NoError(t, err)
	assert.True(t, Equal(first, second))
}
