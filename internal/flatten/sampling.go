// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package flatten

import (
	"github.com/valyala/fastrand"

	"github.com/noga-stacklab/stackcore/internal/qsort"
)

// sampleThreshold is the pixel count above which threshold() estimates the
// percentile cut from a random 1% sample instead of sorting every pixel.
// A full sort of a multi-megapixel frame dominates flatten's
// runtime; a 1% sample keeps the estimate within a fraction of a percent
// of the exact rank for the smooth, unimodal histograms flattened frames
// produce.
const sampleThreshold = 4_000_000

// estimatePercentile returns the approximate value at the given percentile
// (counting from the brightest pixel, as threshold does) using a uniform
// random sample rather than sorting the full data set.
func estimatePercentile(data []float64, p float64) float64 {
	n := len(data) / 100
	if n < 1 {
		n = 1
	}
	sample := make([]float64, n)
	rng := fastrand.RNG{}
	for i := range sample {
		sample[i] = data[rng.Uint32n(uint32(len(data)))]
	}
	qsort.Sort(sample)

	rank := int(float64(n) * p / 100)
	if rank < 0 {
		rank = 0
	}
	if rank >= n {
		rank = n - 1
	}
	return sample[n-1-rank]
}
