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
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/noga-stacklab/stackcore/internal/fitsio"
)

// suppressFFT computes the 2-D DFT of src, zeroes the coefficients at
// wrap-around indices {-k..k} in both dimensions (the low-frequency,
// slowly-varying background), and inverse-transforms back to the image
// domain.
func suppressFFT(src *fitsio.Image, k int) *fitsio.Image {
	rows, cols := src.Rows, src.Cols

	// Forward: rows first, then columns, of the complex field.
	field := make([][]complex128, rows)
	rowFFT := fourier.NewCmplxFFT(cols)
	for r := 0; r < rows; r++ {
		row := make([]complex128, cols)
		for c := 0; c < cols; c++ {
			row[c] = complex(src.At(r, c), 0)
		}
		field[r] = rowFFT.Coefficients(nil, row)
	}

	colFFT := fourier.NewCmplxFFT(rows)
	col := make([]complex128, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			col[r] = field[r][c]
		}
		spec := colFFT.Coefficients(nil, col)
		for r := 0; r < rows; r++ {
			field[r][c] = spec[r]
		}
	}

	zeroWraparound(field, rows, cols, k)

	// Inverse: columns first, then rows, undoing the forward order.
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			col[r] = field[r][c]
		}
		spec := colFFT.Sequence(nil, col)
		for r := 0; r < rows; r++ {
			field[r][c] = spec[r] / complex(float64(rows), 0)
		}
	}

	out := fitsio.New(rows, cols)
	out.Header = src.Header.Clone()
	for r := 0; r < rows; r++ {
		spec := rowFFT.Sequence(nil, field[r])
		for c := 0; c < cols; c++ {
			out.Set(r, c, real(spec[c])/float64(cols))
		}
	}
	return out
}

// zeroWraparound zeroes field at row and column indices within k of zero,
// counting negative indices modulo the dimension (i.e. the low-frequency
// corners of the DFT).
func zeroWraparound(field [][]complex128, rows, cols, k int) {
	rowIdx := wraparoundIndices(rows, k)
	colIdx := wraparoundIndices(cols, k)
	for _, r := range rowIdx {
		for _, c := range colIdx {
			field[r][c] = cmplx.Rect(0, 0)
		}
	}
}

func wraparoundIndices(n, k int) []int {
	seen := make(map[int]bool)
	var idx []int
	for d := -k; d <= k; d++ {
		i := ((d % n) + n) % n
		if !seen[i] {
			seen[i] = true
			idx = append(idx, i)
		}
	}
	return idx
}
