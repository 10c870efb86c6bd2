package vitembed

import "github.com/pkg/errors"

// ===========================================================================
// CLASS TOKEN - One Extra Token to Summarize the Whole Image
// ===========================================================================
//
// WHAT'S GOING ON HERE:
// After patch embedding, every position in the sequence corresponds to one
// patch of the image. For classification we want a single vector that can
// come to represent the whole image. The ViT recipe (borrowed from BERT's
// [CLS] token) is to learn one extra embedding vector and prepend it to
// every sequence. Downstream attention lets it gather information from all
// patches; the classification head then reads only position 0.
//
// The token is ONE learned vector, broadcast to every batch element. All
// samples share the same parameter; they diverge only after attention
// mixes in their patch content (out of scope here).
//
// NOT IDEMPOTENT: prepending twice yields two stacked class tokens and a
// sequence of length N+2. Callers apply this stage exactly once.
//
// ===========================================================================

// ClassToken prepends a single learned embedding vector to the front of
// every sequence in a batch.
type ClassToken struct {
	embedDim int
	token    []float64
}

// NewClassToken allocates a class-token stage for embedDim-wide sequences.
// The token is zero-initialized; training moves it later. Returns a
// configuration error if embedDim is not positive.
func NewClassToken(embedDim int) (*ClassToken, error) {
	if embedDim <= 0 {
		return nil, errors.Errorf("embedding dimension must be positive, got %d", embedDim)
	}
	return &ClassToken{
		embedDim: embedDim,
		token:    make([]float64, embedDim),
	}, nil
}

// Forward maps (B, N, embedDim) to (B, N+1, embedDim). Position 0 of every
// output sequence is the shared class token; positions 1..N are the input
// sequence in original order. Returns a shape error if the input is not
// rank 3 or its trailing dimension does not match the configured embedDim.
func (ct *ClassToken) Forward(seq *Tensor) (*Tensor, error) {
	if seq.Rank() != 3 {
		return nil, errors.Errorf("class token expects a rank-3 (B, N, D) input, got %v", seq.Shape())
	}
	if seq.Dim(2) != ct.embedDim {
		return nil, errors.Errorf("input embedding dimension %d does not match configured %d", seq.Dim(2), ct.embedDim)
	}

	batch, n := seq.Dim(0), seq.Dim(1)
	out := New(batch, n+1, ct.embedDim)

	sd := seq.Data()
	od := out.Data()
	for b := 0; b < batch; b++ {
		dst := b * (n + 1) * ct.embedDim
		// Broadcast the shared token into position 0.
		copy(od[dst:dst+ct.embedDim], ct.token)
		// Shift the original N positions to 1..N.
		src := b * n * ct.embedDim
		copy(od[dst+ct.embedDim:dst+(n+1)*ct.embedDim], sd[src:src+n*ct.embedDim])
	}

	return out, nil
}

// EmbedDim returns the configured embedding dimension.
func (ct *ClassToken) EmbedDim() int {
	return ct.embedDim
}

// Token returns the learned class-token vector, shared not copied.
func (ct *ClassToken) Token() []float64 {
	return ct.token
}
