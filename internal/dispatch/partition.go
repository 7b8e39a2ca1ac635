package dispatch

// Partition splits indices into exactly n contiguous buckets of near-equal
// size, the first len(indices)%n buckets taking one extra element. Order is
// preserved within and across buckets, and their concatenation reproduces
// the input. With n > len(indices) the tail buckets are empty.
func Partition(indices []int, n int) [][]int {
	if n <= 0 {
		return nil
	}
	buckets := make([][]int, n)
	size := len(indices) / n
	extra := len(indices) % n
	pos := 0
	for i := range buckets {
		end := pos + size
		if i < extra {
			end++
		}
		buckets[i] = indices[pos:end:end]
		pos = end
	}
	return buckets
}
