package vitembed

import (
	"math"

	"github.com/pkg/errors"
)

// ===========================================================================
// POSITION ENCODING - Telling the Model Where Each Token Sits
// ===========================================================================
//
// WHAT'S GOING ON HERE:
// Attention is permutation-invariant: shuffle the patch sequence and the
// output shuffles with it. Position encodings break that symmetry by adding
// a position-dependent signal to each token before the encoder sees it.
//
// A SIMPLIFICATION, ON PURPOSE:
// PositionEncoding below owns a SINGLE learned d_emb vector and adds the
// same vector to every position of every sample. That makes it a uniform
// additive bias, not a true position-distinguishing code; two positions
// receive identical offsets. This mirrors the simplified reference this
// walkthrough teaches from, and it is kept as-is rather than silently
// upgraded. SinusoidalEncoding further down is the conventional
// per-position scheme, included for contrast.
//
// USEFUL PROPERTY:
// The bias starts at zero, so a freshly constructed PositionEncoding is
// exactly the identity function. The tests pin this down bit-for-bit.
//
// ===========================================================================

// PositionEncoding adds one learned bias vector to every position of an
// embedding sequence.
type PositionEncoding struct {
	embedDim int
	bias     []float64
}

// NewPositionEncoding allocates a position-encoding stage for embedDim-wide
// sequences, with a zero-initialized bias. Returns a configuration error if
// embedDim is not positive.
func NewPositionEncoding(embedDim int) (*PositionEncoding, error) {
	if embedDim <= 0 {
		return nil, errors.Errorf("embedding dimension must be positive, got %d", embedDim)
	}
	return &PositionEncoding{
		embedDim: embedDim,
		bias:     make([]float64, embedDim),
	}, nil
}

// Forward maps (B, S, embedDim) to the same shape, adding the shared bias
// vector to every (batch, position) pair. Returns a shape error if the
// input is not rank 3 or its trailing dimension does not match embedDim.
func (pe *PositionEncoding) Forward(seq *Tensor) (*Tensor, error) {
	if seq.Rank() != 3 {
		return nil, errors.Errorf("position encoding expects a rank-3 (B, S, D) input, got %v", seq.Shape())
	}
	if seq.Dim(2) != pe.embedDim {
		return nil, errors.Errorf("input embedding dimension %d does not match configured %d", seq.Dim(2), pe.embedDim)
	}

	out := seq.Clone()
	od := out.Data()
	for i := 0; i < len(od); i += pe.embedDim {
		for j, bj := range pe.bias {
			od[i+j] += bj
		}
	}
	return out, nil
}

// EmbedDim returns the configured embedding dimension.
func (pe *PositionEncoding) EmbedDim() int {
	return pe.embedDim
}

// Bias returns the learned bias vector, shared not copied.
func (pe *PositionEncoding) Bias() []float64 {
	return pe.bias
}

// SinusoidalEncoding is the fixed per-position encoding from "Attention Is
// All You Need" (https://arxiv.org/abs/1706.03762): even embedding indices
// carry sin(pos/10000^(2i/d)), odd indices the matching cosine. Unlike
// PositionEncoding it has no learned parameters and genuinely distinguishes
// positions. It is included as the conventional counterpart to the
// simplified shared-bias stage above.
type SinusoidalEncoding struct {
	embedDim int
	maxLen   int

	// table is (maxLen, embedDim), precomputed at construction.
	table *Tensor
}

// NewSinusoidalEncoding precomputes encodings for sequences up to maxLen
// positions of embedDim-wide vectors. Returns a configuration error for
// non-positive sizes.
func NewSinusoidalEncoding(embedDim, maxLen int) (*SinusoidalEncoding, error) {
	if embedDim <= 0 {
		return nil, errors.Errorf("embedding dimension must be positive, got %d", embedDim)
	}
	if maxLen <= 0 {
		return nil, errors.Errorf("maximum sequence length must be positive, got %d", maxLen)
	}

	table := New(maxLen, embedDim)
	for pos := 0; pos < maxLen; pos++ {
		for i := 0; i < embedDim; i += 2 {
			angle := float64(pos) / math.Pow(10000, float64(i)/float64(embedDim))
			table.Set(math.Sin(angle), pos, i)
			if i+1 < embedDim {
				table.Set(math.Cos(angle), pos, i+1)
			}
		}
	}

	return &SinusoidalEncoding{embedDim: embedDim, maxLen: maxLen, table: table}, nil
}

// Forward maps (B, S, embedDim) to the same shape, adding the encoding for
// position s to every sample's position s. Returns a shape error if the
// input is not rank 3, the trailing dimension does not match embedDim, or
// S exceeds the precomputed maximum length.
func (se *SinusoidalEncoding) Forward(seq *Tensor) (*Tensor, error) {
	if seq.Rank() != 3 {
		return nil, errors.Errorf("sinusoidal encoding expects a rank-3 (B, S, D) input, got %v", seq.Shape())
	}
	if seq.Dim(2) != se.embedDim {
		return nil, errors.Errorf("input embedding dimension %d does not match configured %d", seq.Dim(2), se.embedDim)
	}
	if seq.Dim(1) > se.maxLen {
		return nil, errors.Errorf("sequence length %d exceeds precomputed maximum %d", seq.Dim(1), se.maxLen)
	}

	batch, s := seq.Dim(0), seq.Dim(1)
	out := seq.Clone()
	od := out.Data()
	td := se.table.Data()
	for b := 0; b < batch; b++ {
		for pos := 0; pos < s; pos++ {
			base := (b*s + pos) * se.embedDim
			enc := pos * se.embedDim
			for j := 0; j < se.embedDim; j++ {
				od[base+j] += td[enc+j]
			}
		}
	}
	return out, nil
}
