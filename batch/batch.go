// Package batch splits workloads into bounded chunks and expands scan
// ranges into evenly spaced points.
package batch

import "fmt"

// Split divides total units of work into ceil(total/maxChunk) chunks: full
// chunks of maxChunk, then a final chunk holding the remainder if one is
// left. The chunk sizes sum to total exactly and every chunk is in
// (0, maxChunk]. total == 0 yields an empty slice.
//
// The layout is load-bearing: chunk sizes become per-task toy counts, and
// the i-th chunk pairs with the i-th derived seed. Changing the layout
// reassigns toys to random streams and breaks reproduction of existing runs.
func Split(total, maxChunk int) ([]int, error) {
	if total < 0 {
		return nil, fmt.Errorf("total %d must be >= 0", total)
	}
	if maxChunk <= 0 {
		return nil, fmt.Errorf("max chunk %d must be > 0", maxChunk)
	}
	if total == 0 {
		return []int{}, nil
	}

	count := (total + maxChunk - 1) / maxChunk
	chunks := make([]int, count)
	for i := range chunks {
		chunks[i] = maxChunk
	}
	if remainder := total % maxChunk; remainder != 0 {
		chunks[count-1] = remainder
	}
	return chunks, nil
}

// Linspace returns count evenly spaced points from start to stop inclusive.
// count == 0 yields an empty slice, count == 1 yields [start], and for
// count >= 2 the first and last points equal start and stop exactly.
func Linspace(start, stop float64, count int) ([]float64, error) {
	if count < 0 {
		return nil, fmt.Errorf("count %d must be >= 0", count)
	}
	if count == 0 {
		return []float64{}, nil
	}
	if count == 1 {
		return []float64{start}, nil
	}

	step := (stop - start) / float64(count-1)
	points := make([]float64, count)
	for i := range points {
		points[i] = start + float64(i)*step
	}
	points[0] = start
	points[count-1] = stop
	return points, nil
}
