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

// Package badpixel detects and repairs isolated single-pixel outliers by
// comparing each interior pixel against the median of its 8 neighbours.
package badpixel

import (
	"github.com/klauspost/cpuid/v2"

	"github.com/noga-stacklab/stackcore/internal/bufpool"
	"github.com/noga-stacklab/stackcore/internal/fitsio"
	"github.com/noga-stacklab/stackcore/internal/qsort"
)

// Repair returns a copy of src with isolated outlier pixels replaced by
// the median of their 8 neighbours, and the number of pixels replaced.
// src must have at least 3 rows and 3 columns. Border pixels are left
// untouched. All neighbour reads come from src (the pre-pass state); the
// repaired value never feeds into a later decision within the same pass.
func Repair(src *fitsio.Image) (*fitsio.Image, int) {
	out := src.Clone()
	min, max := src.MinMax()
	threshold := (max - min) / 10

	var replaced int
	if cpuid.CPU.Supports(cpuid.AVX2) {
		// Wide vector units amortize the cost of a pooled row buffer;
		// stage rows through bufpool to keep repeated runs
		// from re-touching freshly faulted-in memory.
		replaced = repairPooled(out.Data, src.Data, src.Rows, src.Cols, threshold)
	} else {
		replaced = repairScalar(out.Data, src.Data, src.Rows, src.Cols, threshold)
	}
	return out, replaced
}

// repairScalar walks interior pixels one at a time, allocating nothing.
func repairScalar(dst, src []float64, rows, cols int, threshold float64) int {
	replaced := 0
	for r := 1; r <= rows-2; r++ {
		for c := 1; c <= cols-2; c++ {
			if repairPixel(dst, src, cols, r, c, threshold) {
				replaced++
			}
		}
	}
	return replaced
}

// repairPooled stages three rows (previous, current, next) through pooled
// buffers and reads every neighbour from those contiguous buffers instead
// of the scattered offsets into src, so the working set for wide-register
// builds stays in a small set of reused, cache-friendly allocations
// instead of churning the GC and walking a larger strided array.
func repairPooled(dst, src []float64, rows, cols int, threshold float64) int {
	replaced := 0
	buf := [3][]float64{bufpool.Get(cols), bufpool.Get(cols), bufpool.Get(cols)}
	defer bufpool.Put(buf[0])
	defer bufpool.Put(buf[1])
	defer bufpool.Put(buf[2])

	copy(buf[0], src[0:cols])
	copy(buf[1], src[cols:2*cols])

	for r := 1; r <= rows-2; r++ {
		copy(buf[(r+1)%3], src[(r+1)*cols:(r+2)*cols])
		prevRow, curRow, nextRow := buf[(r-1)%3], buf[r%3], buf[(r+1)%3]
		for c := 1; c <= cols-2; c++ {
			if repairPixelStaged(dst, src, prevRow, curRow, nextRow, cols, r, c, threshold) {
				replaced++
			}
		}
	}
	return replaced
}

// repairPixelStaged repairs one pixel reading its 8 neighbours from the
// staged row buffers rather than src; the centre value is read from src.
func repairPixelStaged(dst, src []float64, prevRow, curRow, nextRow []float64, cols, r, c int, threshold float64) bool {
	idx := r*cols + c
	neighbours := [8]float64{
		prevRow[c-1], prevRow[c], prevRow[c+1],
		curRow[c-1], curRow[c+1],
		nextRow[c-1], nextRow[c], nextRow[c+1],
	}
	median := qsort.Median8(neighbours)
	if diff := src[idx] - median; diff > threshold || -diff > threshold {
		dst[idx] = median
		return true
	}
	return false
}

func repairPixel(dst, src []float64, cols, r, c int, threshold float64) bool {
	idx := r*cols + c
	neighbours := [8]float64{
		src[idx-cols-1], src[idx-cols], src[idx-cols+1],
		src[idx-1], src[idx+1],
		src[idx+cols-1], src[idx+cols], src[idx+cols+1],
	}
	median := qsort.Median8(neighbours)
	if diff := src[idx] - median; diff > threshold || -diff > threshold {
		dst[idx] = median
		return true
	}
	return false
}
