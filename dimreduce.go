package vitembed

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ===========================================================================
// PCA - Looking at Embeddings Humans Can't Visualize
// ===========================================================================
//
// WHAT'S GOING ON HERE:
// Patch embeddings live in d_emb-dimensional space. To eyeball what the
// pipeline produced (do patches of the same region land near each other?
// where does the class token sit?), we project the sequence down to 2D
// with principal component analysis: center the vectors, find the two
// directions of greatest variance, and keep each vector's coordinates
// along those directions.
//
// ALGORITHM (via SVD):
// 1. Center the data: subtract the per-dimension mean.
// 2. Thin SVD of the centered matrix: X = U Σ Vᵀ. The columns of V are
//    the principal directions, ordered by explained variance.
// 3. Project: Y = X · V[:, :2].
//
// SVD on the data matrix is numerically kinder than forming the covariance
// matrix and running power iteration on it, and gonum ships it.
//
// ===========================================================================

// PCA projects a rank-2 (points, dims) tensor onto its top two principal
// components, returning a (points, 2) tensor. Returns a shape error if the
// input is not rank 2 or has fewer than two columns, and an error if the
// decomposition fails to converge.
func PCA(embeddings *Tensor) (*Tensor, error) {
	if embeddings.Rank() != 2 {
		return nil, errors.Errorf("PCA expects a rank-2 (points, dims) input, got %v", embeddings.Shape())
	}
	points, dims := embeddings.Dim(0), embeddings.Dim(1)
	if dims < 2 || points < 2 {
		return nil, errors.Errorf("PCA needs at least 2 points and 2 dimensions, got %dx%d", points, dims)
	}

	// Step 1: center each dimension at zero.
	centered := embeddings.Clone()
	cd := centered.Data()
	for j := 0; j < dims; j++ {
		mean := 0.0
		for i := 0; i < points; i++ {
			mean += cd[i*dims+j]
		}
		mean /= float64(points)
		for i := 0; i < points; i++ {
			cd[i*dims+j] -= mean
		}
	}

	// Step 2: thin SVD of the centered matrix.
	var svd mat.SVD
	if ok := svd.Factorize(centered.Matrix(), mat.SVDThin); !ok {
		return nil, errors.New("PCA: SVD failed to converge")
	}
	var v mat.Dense
	svd.VTo(&v)

	// Step 3: project onto the top two right singular vectors.
	out := New(points, 2)
	proj := out.Matrix()
	proj.Mul(centered.Matrix(), v.Slice(0, dims, 0, 2))

	return out, nil
}
