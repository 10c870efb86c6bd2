package vitembed

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ===========================================================================
// PATCH EMBEDDING - Turning an Image into a Sequence of Tokens
// ===========================================================================
//
// WHAT'S GOING ON HERE:
// A transformer consumes a sequence of vectors, but an image is a grid of
// pixels. The Vision Transformer's answer is blunt: chop the image into
// fixed-size, non-overlapping square patches, flatten each patch's pixels
// into one long vector, and push every vector through the same learned
// linear map. Each patch becomes one "token" of d_emb numbers.
//
// THE SHAPES:
//   input   (B, C, H, W)                images, channels-first
//   patches (B*N, pH*pW*C)              one flattened patch per row
//   output  (B, N, d_emb)               N = (H/pH) * (W/pW)
//
// FLATTENING CONVENTION (load-bearing for learned weights):
// Within one patch, pixel (c, py, px) lands at flat index
//
//   (c*pH + py)*pW + px
//
// i.e. channel-major, then patch row, then patch column. This mirrors the
// CHW layout of the image itself restricted to the patch window. Any code
// that inverts the flattening, or reasons about which weight column sees
// which pixel, must use the same convention.
//
// GRID ORDERING:
// Patches appear in the output sequence row-major over the patch grid:
// top-to-bottom, left-to-right, matching reading order on the image.
//
// WHY ONE BULK MATMUL:
// Projecting each patch separately and projecting all B*N patches stacked
// as rows of one matrix are mathematically identical, because the linear
// map treats every row independently. So we gather all patches into a
// single (B*N, patchDim) matrix and do one Dense.Mul. Same math, one
// vectorized call instead of B*N small ones.
//
// PAPER: "An Image is Worth 16x16 Words" https://arxiv.org/abs/2010.11929
//
// ===========================================================================

// PatchSize is the spatial extent of one patch.
type PatchSize struct {
	Height int
	Width  int
}

// SquarePatch returns an n-by-n patch size.
func SquarePatch(n int) PatchSize {
	return PatchSize{Height: n, Width: n}
}

func (p PatchSize) validate() error {
	if p.Height <= 0 || p.Width <= 0 {
		return errors.Errorf("patch size must be positive, got %dx%d", p.Height, p.Width)
	}
	return nil
}

// PatchEmbedding slices images into patches and linearly projects each
// patch to an embedding vector. It owns the projection parameters.
type PatchEmbedding struct {
	patch      PatchSize
	inChannels int
	embedDim   int

	// weight is (patchDim x embedDim); row i holds the output
	// contributions of flattened-patch input i. bias has embedDim
	// entries, added to every projected patch.
	weight *mat.Dense
	bias   []float64
}

// weightInitSigma is the standard deviation for projection-weight
// initialization, the usual small-init scale for transformer weights.
const weightInitSigma = 0.02

// NewPatchEmbedding allocates a patch-embedding stage projecting flattened
// patches of patch.Height*patch.Width*inChannels pixels to embedDim-wide
// vectors. Weights are drawn from N(0, 0.02) with a fixed seed, so
// construction is deterministic; the bias starts at zero. Returns a
// configuration error for non-positive sizes.
func NewPatchEmbedding(patch PatchSize, embedDim, inChannels int) (*PatchEmbedding, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}
	if embedDim <= 0 {
		return nil, errors.Errorf("embedding dimension must be positive, got %d", embedDim)
	}
	if inChannels <= 0 {
		return nil, errors.Errorf("input channels must be positive, got %d", inChannels)
	}

	patchDim := patch.Height * patch.Width * inChannels
	normal := distuv.Normal{Mu: 0, Sigma: weightInitSigma, Src: rand.NewPCG(0, 42)}

	weight := mat.NewDense(patchDim, embedDim, nil)
	for i := 0; i < patchDim; i++ {
		for j := 0; j < embedDim; j++ {
			weight.Set(i, j, normal.Rand())
		}
	}

	return &PatchEmbedding{
		patch:      patch,
		inChannels: inChannels,
		embedDim:   embedDim,
		weight:     weight,
		bias:       make([]float64, embedDim),
	}, nil
}

// PatchDim returns the length of one flattened patch,
// patch.Height * patch.Width * inChannels.
func (pe *PatchEmbedding) PatchDim() int {
	return pe.patch.Height * pe.patch.Width * pe.inChannels
}

// EmbedDim returns the configured embedding dimension.
func (pe *PatchEmbedding) EmbedDim() int {
	return pe.embedDim
}

// NumPatches returns how many patches an HxW image yields, or a shape
// error if the image is not evenly divisible into patches.
func (pe *PatchEmbedding) NumPatches(h, w int) (int, error) {
	if h%pe.patch.Height != 0 {
		return 0, errors.Errorf("image height %d not divisible by patch height %d", h, pe.patch.Height)
	}
	if w%pe.patch.Width != 0 {
		return 0, errors.Errorf("image width %d not divisible by patch width %d", w, pe.patch.Width)
	}
	return (h / pe.patch.Height) * (w / pe.patch.Width), nil
}

// Forward maps an image batch (B, C, H, W) to an embedding sequence
// (B, N, embedDim) with N = (H/patchHeight)*(W/patchWidth).
//
// The input is only read; the learned parameters are only read. Returns a
// shape error if the input is not rank 4, if C does not match the
// configured channel count, or if H or W is not divisible by the
// corresponding patch dimension.
func (pe *PatchEmbedding) Forward(x *Tensor) (*Tensor, error) {
	if x.Rank() != 4 {
		return nil, errors.Errorf("patch embedding expects a rank-4 (B, C, H, W) input, got %v", x.Shape())
	}
	batch, channels, height, width := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
	if channels != pe.inChannels {
		return nil, errors.Errorf("input has %d channels, patch embedding configured for %d", channels, pe.inChannels)
	}
	numPatches, err := pe.NumPatches(height, width)
	if err != nil {
		return nil, err
	}

	pH, pW := pe.patch.Height, pe.patch.Width
	gridW := width / pW
	patchDim := pe.PatchDim()

	// Step 1: gather every patch of every image as one row of a single
	// (B*N, patchDim) matrix. This is the reshape+transpose of the
	// einops "b c (gh ph) (gw pw) -> (b gh gw) (c ph pw)" rearrangement,
	// written as explicit index arithmetic.
	patches := New(batch*numPatches, patchDim)
	xd := x.Data()
	pd := patches.Data()
	for b := 0; b < batch; b++ {
		for gy := 0; gy < height/pH; gy++ {
			for gx := 0; gx < gridW; gx++ {
				row := (b*(height/pH)+gy)*gridW + gx // row-major over the patch grid
				dst := row * patchDim
				for c := 0; c < channels; c++ {
					for py := 0; py < pH; py++ {
						src := ((b*channels+c)*height+gy*pH+py)*width + gx*pW
						copy(pd[dst:dst+pW], xd[src:src+pW])
						dst += pW
					}
				}
			}
		}
	}

	// Step 2: one bulk projection of all patches at once. The output
	// tensor's backing array doubles as the matmul destination via a
	// zero-copy rank-2 view.
	out := New(batch, numPatches, pe.embedDim)
	proj := out.Reshape(batch*numPatches, pe.embedDim).Matrix()
	proj.Mul(patches.Matrix(), pe.weight)

	// Step 3: broadcast the bias across every projected patch.
	od := out.Data()
	for row := 0; row < batch*numPatches; row++ {
		base := row * pe.embedDim
		for j, bj := range pe.bias {
			od[base+j] += bj
		}
	}

	return out, nil
}

// Weight returns the learned (patchDim x embedDim) projection matrix. It
// is the live parameter, not a copy; training code mutates it in place.
func (pe *PatchEmbedding) Weight() *mat.Dense {
	return pe.weight
}

// Bias returns the learned projection bias, shared not copied.
func (pe *PatchEmbedding) Bias() []float64 {
	return pe.bias
}
