// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch splits identifier lists into fixed-size, order-preserving chunks.
package batch

import "fmt"

// Split partitions items into contiguous batches of size elements. Every
// batch but the last holds exactly size elements; concatenating the batches
// yields items unchanged. An empty input yields no batches.
//
// Split panics when size < 1. Callers validate batch sizes at the config
// boundary, so a bad size here is a programming error.
func Split[T any](items []T, size int) [][]T {
	if size < 1 {
		panic(fmt.Sprintf("batch: size must be >= 1, got %d", size))
	}
	if len(items) == 0 {
		return nil
	}

	batches := make([][]T, 0, Count(len(items), size))
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		// Full slice expression so appending to one batch cannot clobber the next.
		batches = append(batches, items[start:end:end])
	}
	return batches
}

// Count returns the number of batches Split produces for n items, ceil(n/size).
func Count(n, size int) int {
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
