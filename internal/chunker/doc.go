// Package chunker turns raw file content into fixed-size overlapping windows,
// the atomic unit stored in all three indices.
//
// The window is a pure character slide with no awareness of semantic
// boundaries. Overlap keeps context that straddles a cut point retrievable
// from both neighbouring chunks.
package chunker
