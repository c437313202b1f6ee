package rag

import "errors"

// ErrDimensionMismatch is returned by Upsert when a chunk's vector length
// disagrees with the collection dimensionality. The caller should prompt for
// a full re-index rather than truncate or pad silently.
var ErrDimensionMismatch = errors.New("rag: vector dimension mismatch")
