// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Embedder turns a batch of texts into one vector per text, in input order.
// Implementations wrap an external embedding provider; the adapter is the only
// caller aware of vector dimensionality.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// permanentError marks an upstream failure that retrying cannot fix
// (bad credentials, forbidden model).
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the retry policy gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Cosine returns the cosine similarity of a and b in [-1,1]. It returns an
// error when the vectors differ in length or either has zero norm.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, errors.New("zero-norm vector")
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Normalize maps a cosine value from [-1,1] onto [0,1].
func Normalize(cosine float64) float32 {
	v := (cosine + 1) / 2
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return float32(v)
}
