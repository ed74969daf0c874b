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
	"math"

	"github.com/noga-stacklab/stackcore/internal/fitsio"
	"github.com/noga-stacklab/stackcore/internal/qsort"
)

// Daubechies-4 filter taps.
var (
	h0 = (1 + math.Sqrt(3)) / 4
	h1 = (3 + math.Sqrt(3)) / 4
	h2 = (3 - math.Sqrt(3)) / 4
	h3 = (1 - math.Sqrt(3)) / 4
)

// suppressWavelet pads src up to the next power of two in each dimension
// (new pixels filled with the median of the original image), applies the
// full Daubechies-4 decomposition along rows then columns, zeroes the
// coarsest-scale top-left sub-block controlled by k, reconstructs
// column-wise then row-wise, and crops back to the original shape.
func suppressWavelet(src *fitsio.Image, k int) *fitsio.Image {
	paddedRows := nextPow2(src.Rows)
	paddedCols := nextPow2(src.Cols)

	medianVal := medianOf(src.Data)
	padded := fitsio.New(paddedRows, paddedCols)
	for i := range padded.Data {
		padded.Data[i] = medianVal
	}
	for r := 0; r < src.Rows; r++ {
		copy(padded.Row(r)[:src.Cols], src.Row(r))
	}

	for r := 0; r < paddedRows; r++ {
		forwardDWTFull(padded.Row(r))
	}
	forEachColumn(padded, forwardDWTFull)

	maxRow := 1 << uint(log2Floor(paddedRows)-k)
	maxCol := 1 << uint(log2Floor(paddedCols)-k)
	if maxRow > paddedRows {
		maxRow = paddedRows
	}
	if maxCol > paddedCols {
		maxCol = paddedCols
	}
	if maxRow > 0 && maxCol > 0 {
		for r := 0; r < maxRow; r++ {
			row := padded.Row(r)
			for c := 0; c < maxCol; c++ {
				row[c] = 0
			}
		}
	}

	forEachColumn(padded, inverseDWTFull)
	for r := 0; r < paddedRows; r++ {
		inverseDWTFull(padded.Row(r))
	}

	out := fitsio.New(src.Rows, src.Cols)
	out.Header = src.Header.Clone()
	for r := 0; r < src.Rows; r++ {
		copy(out.Row(r), padded.Row(r)[:src.Cols])
	}
	return out
}

// forEachColumn applies f to every column of img, reading it out into a
// contiguous buffer (the storage is row-major) and writing the result back.
func forEachColumn(img *fitsio.Image, f func([]float64)) {
	col := make([]float64, img.Rows)
	for c := 0; c < img.Cols; c++ {
		for r := 0; r < img.Rows; r++ {
			col[r] = img.At(r, c)
		}
		f(col)
		for r := 0; r < img.Rows; r++ {
			img.Set(r, c, col[r])
		}
	}
}

// forwardDWTFull applies the full Daubechies-4 decomposition to x in
// place, recursing n -> n/2 -> ... down to length 2.
func forwardDWTFull(x []float64) {
	tmp := make([]float64, len(x))
	for n := len(x); n >= 2; n >>= 1 {
		forwardDWTLevel(x[:n], tmp[:n])
	}
}

// forwardDWTLevel applies one level of the transform to the first n
// elements of x (n = len(x) here), using circular indexing modulo n.
func forwardDWTLevel(x, tmp []float64) {
	n := len(x)
	nh := n / 2
	for i := 0; i < nh; i++ {
		x0 := x[(2*i)%n]
		x1 := x[(2*i+1)%n]
		x2 := x[(2*i+2)%n]
		x3 := x[(2*i+3)%n]
		tmp[i] = (h0*x0 + h1*x1 + h2*x2 + h3*x3) / 2
		tmp[nh+i] = (h3*x0 - h2*x1 + h1*x2 - h0*x3) / 2
	}
	copy(x, tmp[:n])
}

// inverseDWTFull reconstructs x in place from a full Daubechies-4
// decomposition, synthesizing from the coarsest level (length 2) back up
// to the full length.
func inverseDWTFull(x []float64) {
	tmp := make([]float64, len(x))
	n := 2
	for n <= len(x) {
		inverseDWTLevel(x[:n], tmp[:n])
		n <<= 1
	}
}

// inverseDWTLevel is the adjoint of forwardDWTLevel: given lowpass
// coefficients a = x[:nh] and highpass coefficients c = x[nh:n], it
// reconstructs x[:n].
func inverseDWTLevel(x, tmp []float64) {
	n := len(x)
	nh := n / 2
	a := x[:nh]
	c := x[nh:n]
	for i := 0; i < nh; i++ {
		prev := (i - 1 + nh) % nh
		tmp[2*i] = h0*a[i] + h2*a[prev] + h3*c[i] + h1*c[prev]
		tmp[2*i+1] = h1*a[i] - h2*c[i] + h3*a[prev] - h0*c[prev]
	}
	copy(x, tmp[:n])
}

func medianOf(data []float64) float64 {
	cp := append([]float64(nil), data...)
	return qsort.Median(cp)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// log2Floor returns floor(log2(n)) for n >= 1.
func log2Floor(n int) int {
	l := 0
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}
