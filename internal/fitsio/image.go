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

// Package fitsio reads and writes FITS (Flexible Image Transport System)
// files restricted to the shape the stacking core consumes: a single 2-D
// TDOUBLE (BITPIX=-64) image plane.
//
// Spec: https://fits.gsfc.nasa.gov/standard40/fits_standard40aa-le.pdf
package fitsio

// Image is a dense 2-D array of 64-bit floating point pixel values,
// stored row-major, plus the header block it was read with (or will be
// written with).
type Image struct {
	Rows, Cols int
	Data       []float64 // row-major, len == Rows*Cols

	Header Header
}

// New allocates a zeroed image of the given shape with an empty header.
func New(rows, cols int) *Image {
	return &Image{
		Rows:   rows,
		Cols:   cols,
		Data:   make([]float64, rows*cols),
		Header: NewHeader(),
	}
}

// NewLike allocates a zeroed image with the same shape and a cloned header
// as src. Used for the mean/stdev accumulator outputs, which inherit the
// reference frame's header so world-coordinate keywords survive.
func NewLike(src *Image) *Image {
	img := New(src.Rows, src.Cols)
	img.Header = src.Header.Clone()
	return img
}

// At returns the pixel value at (row, col).
func (img *Image) At(row, col int) float64 {
	return img.Data[row*img.Cols+col]
}

// Set assigns the pixel value at (row, col).
func (img *Image) Set(row, col int, v float64) {
	img.Data[row*img.Cols+col] = v
}

// Row returns a zero-copy view of row r.
func (img *Image) Row(r int) []float64 {
	return img.Data[r*img.Cols : (r+1)*img.Cols]
}

// Col returns a copy of column c, since the underlying storage is row-major.
func (img *Image) Col(c int) []float64 {
	col := make([]float64, img.Rows)
	for r := 0; r < img.Rows; r++ {
		col[r] = img.Data[r*img.Cols+c]
	}
	return col
}

// Clone returns a deep copy of img, including its header.
func (img *Image) Clone() *Image {
	out := &Image{
		Rows:   img.Rows,
		Cols:   img.Cols,
		Data:   append([]float64(nil), img.Data...),
		Header: img.Header.Clone(),
	}
	return out
}

// SameShape reports whether img and other have identical dimensions.
func (img *Image) SameShape(other *Image) bool {
	return img.Rows == other.Rows && img.Cols == other.Cols
}

// FillCircle sets every pixel within radius r of centre (rc, cc) to color.
// Used for diagnostic star-overlay dumps, not for any part of the core
// pipeline's numeric path.
func (img *Image) FillCircle(rc, cc, r, color float64) {
	for dr := -r; dr <= r; dr += 0.5 {
		for dc := -r; dc <= r; dc += 0.5 {
			if dr*dr+dc*dc <= r*r+1e-6 {
				row, col := int(rc+dr), int(cc+dc)
				if row >= 0 && row < img.Rows && col >= 0 && col < img.Cols {
					img.Set(row, col, color)
				}
			}
		}
	}
}

// MinMax returns the minimum and maximum pixel values.
func (img *Image) MinMax() (min, max float64) {
	min, max = img.Data[0], img.Data[0]
	for _, v := range img.Data[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
