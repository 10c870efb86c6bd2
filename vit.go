package vitembed

import "github.com/pkg/errors"

// Config describes a full input-embedding pipeline. Zero InChannels means
// the RGB default of 3.
type Config struct {
	Patch      PatchSize
	EmbedDim   int
	InChannels int
}

// InputEmbedding composes the three stages in their only sensible order:
//
//	images (B, C, H, W)
//	  -> PatchEmbedding  -> (B, N,   d_emb)
//	  -> ClassToken      -> (B, N+1, d_emb)
//	  -> PositionEncoding-> (B, N+1, d_emb)
//
// The result is what a transformer encoder stack would consume. Each stage
// stays independently usable; this type only wires them together.
type InputEmbedding struct {
	Patches   *PatchEmbedding
	Class     *ClassToken
	Positions *PositionEncoding
}

// NewInputEmbedding builds all three stages from one configuration.
// Returns a configuration error if any stage rejects its part.
func NewInputEmbedding(cfg Config) (*InputEmbedding, error) {
	if cfg.InChannels == 0 {
		cfg.InChannels = 3
	}

	patches, err := NewPatchEmbedding(cfg.Patch, cfg.EmbedDim, cfg.InChannels)
	if err != nil {
		return nil, errors.WithMessage(err, "patch embedding")
	}
	class, err := NewClassToken(cfg.EmbedDim)
	if err != nil {
		return nil, errors.WithMessage(err, "class token")
	}
	positions, err := NewPositionEncoding(cfg.EmbedDim)
	if err != nil {
		return nil, errors.WithMessage(err, "position encoding")
	}

	return &InputEmbedding{Patches: patches, Class: class, Positions: positions}, nil
}

// Forward runs an image batch through all three stages. Any stage's shape
// error is returned as-is; no partial output is produced.
func (ie *InputEmbedding) Forward(images *Tensor) (*Tensor, error) {
	seq, err := ie.Patches.Forward(images)
	if err != nil {
		return nil, err
	}
	seq, err = ie.Class.Forward(seq)
	if err != nil {
		return nil, err
	}
	return ie.Positions.Forward(seq)
}

// SequenceLength returns the output sequence length for an HxW image:
// the patch count plus one for the class token. Returns a shape error if
// the image does not divide evenly into patches.
func (ie *InputEmbedding) SequenceLength(h, w int) (int, error) {
	n, err := ie.Patches.NumPatches(h, w)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// Parameters returns the live backing slices of every learned parameter,
// in a fixed order: projection weight (row-major), projection bias, class
// token, position bias. An external training procedure updates parameters
// through these slices; it must serialize its own writes against any
// concurrent Forward calls.
func (ie *InputEmbedding) Parameters() [][]float64 {
	return [][]float64{
		ie.Patches.Weight().RawMatrix().Data,
		ie.Patches.Bias(),
		ie.Class.Token(),
		ie.Positions.Bias(),
	}
}

// NumParameters returns the total learned-parameter count.
func (ie *InputEmbedding) NumParameters() int {
	total := 0
	for _, p := range ie.Parameters() {
		total += len(p)
	}
	return total
}
