package api

// Nullflags for Allocate calls that carry no flags.
const Nullflags = 0

// Defaultalign is the alignment applied when callers have no
// particular requirement.
const Defaultalign = int64(8)
