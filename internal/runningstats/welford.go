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

// Package runningstats accumulates per-pixel mean and variance across a
// sequence of equally-shaped frames using Welford's single-pass algorithm,
// which keeps precision high without holding every frame in memory.
package runningstats

import (
	"fmt"
	"math"

	"github.com/noga-stacklab/stackcore/internal/fitsio"
)

// Accumulator holds the running (n, mean, M2) triple of Welford's method.
// mean and M2 are images of identical shape; n is the number of frames
// absorbed so far.
type Accumulator struct {
	n    int
	mean *fitsio.Image
	m2   *fitsio.Image
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// ShapeMismatch reports that the stacker received an image whose shape
// differs from the accumulator's existing state.
type ShapeMismatch struct {
	Rows, Cols         int
	WantRows, WantCols int
}

func (e *ShapeMismatch) Error() string {
	return fmt.Sprintf("runningstats: shape mismatch, got %dx%d, want %dx%d", e.Rows, e.Cols, e.WantRows, e.WantCols)
}

// Add absorbs one frame into the accumulator. Every frame after the first
// must match the first frame's shape, or ShapeMismatch is returned.
func (a *Accumulator) Add(frame *fitsio.Image) error {
	if a.n == 0 {
		a.mean = frame.Clone()
		a.m2 = fitsio.NewLike(frame)
		a.n = 1
		return nil
	}

	if !a.mean.SameShape(frame) {
		return &ShapeMismatch{Rows: frame.Rows, Cols: frame.Cols, WantRows: a.mean.Rows, WantCols: a.mean.Cols}
	}

	a.n++
	n := float64(a.n)
	for i, v := range frame.Data {
		delta := v - a.mean.Data[i]
		a.mean.Data[i] += delta / n
		a.m2.Data[i] += delta * (v - a.mean.Data[i])
	}
	return nil
}

// N returns the number of frames absorbed.
func (a *Accumulator) N() int { return a.n }

// Mean returns the current running mean. The returned image shares no
// storage with future Add calls' inputs, but aliases the accumulator's
// internal state — callers that need to keep it past further Add calls
// should Clone it.
func (a *Accumulator) Mean() *fitsio.Image {
	return a.mean
}

// Stdev returns sqrt(M2/n) elementwise: the population standard deviation.
func (a *Accumulator) Stdev() *fitsio.Image {
	out := fitsio.NewLike(a.mean)
	n := float64(a.n)
	for i, m2 := range a.m2.Data {
		out.Data[i] = math.Sqrt(m2 / n)
	}
	return out
}
