// Package lib provide useful functions and features that are not tied
// up with any particular allocator. They are meant to be small and
// self-contained.
package lib
