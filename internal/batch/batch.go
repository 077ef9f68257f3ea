// Package batch slices ordered work into bounded groups.
package batch

import "iter"

// Chunk yields successive groups of at most size elements, preserving input
// order. Every group except possibly the last has exactly size elements;
// empty input yields no groups. A size below 1 is treated as 1.
func Chunk[T any](items []T, size int) iter.Seq[[]T] {
	if size < 1 {
		size = 1
	}
	return func(yield func([]T) bool) {
		for i := 0; i < len(items); i += size {
			end := min(i+size, len(items))
			if !yield(items[i:end:end]) {
				return
			}
		}
	}
}
