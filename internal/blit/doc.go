// Package blit defines the blit command model and the operator reducer.
//
// A Command describes one compositing request: a Porter-Duff operator, the
// per-command parameters (global alpha, solid color, scaling, clipping, ...)
// and three surface slots (source, mask, destination).
//
// The reducer (Reduce) is a pure function. Given the requested operator and
// the alpha characteristics of the surfaces it returns the cheapest operator
// the hardware has to run to produce the same pixels:
//
//	SRC_OVER with an opaque source and global alpha 255  -> SRC
//	DST_OVER onto an opaque destination                   -> DST (nothing to do)
//	SRC with a constant-color source and global alpha 255 -> SOLID_FILL
//
// Masked composites are never reduced.
package blit
