package embedding

import "math"

// Normalize scales vector in place to unit length. Zero vectors are left
// unchanged.
func Normalize(vector []float32) {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) * inv)
	}
}
