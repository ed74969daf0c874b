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

// Package icp estimates the 2-D affine transform that maps a source star
// field onto a reference star field, by iterated closest-pair matching
// and an ordinary least-squares refit.
package icp

import (
	"fmt"
	"math"
)

// Point is a 2-D point in image coordinates (row, col).
type Point struct {
	Row float64
	Col float64
}

func (p Point) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", p.Row, p.Col)
}

// DistSquared returns the squared euclidian distance between a and b.
func DistSquared(a, b Point) float64 {
	dr, dc := a.Row-b.Row, a.Col-b.Col
	return dr*dr + dc*dc
}

// AffineTransform is the 2x3 matrix [[A,B,Tx],[C,D,Ty]] acting on
// homogeneous points: (row', col') = (A*row + B*col + Tx, C*row + D*col + Ty).
type AffineTransform struct {
	A, B, Tx float64
	C, D, Ty float64
}

// Identity returns the identity transform.
func Identity() AffineTransform {
	return AffineTransform{A: 1, B: 0, Tx: 0, C: 0, D: 1, Ty: 0}
}

func (t AffineTransform) String() string {
	return fmt.Sprintf("r'=%.5g*r %+.5g*c %+.3g, c'=%.5g*r %+.5g*c %+.3g",
		t.A, t.B, t.Tx, t.C, t.D, t.Ty)
}

// Apply maps p through the transform.
func (t AffineTransform) Apply(p Point) Point {
	return Point{
		Row: t.A*p.Row + t.B*p.Col + t.Tx,
		Col: t.C*p.Row + t.D*p.Col + t.Ty,
	}
}

// ApplyAll maps every point in ps through the transform.
func (t AffineTransform) ApplyAll(ps []Point) []Point {
	out := make([]Point, len(ps))
	for i, p := range ps {
		out[i] = t.Apply(p)
	}
	return out
}

// Invert returns the inverse transform. Returns an error if the linear
// part is singular.
func (t AffineTransform) Invert() (AffineTransform, error) {
	det := t.A*t.D - t.B*t.C
	if det < 1e-12 && det > -1e-12 {
		return AffineTransform{}, fmt.Errorf("affine transform has no inverse, det=%g", det)
	}
	invDet := 1 / det
	a := t.D * invDet
	b := -t.B * invDet
	c := -t.C * invDet
	d := t.A * invDet
	return AffineTransform{
		A: a, B: b, Tx: -(a*t.Tx + b*t.Ty),
		C: c, D: d, Ty: -(c*t.Tx + d*t.Ty),
	}, nil
}

// Shear returns (a*c + b*d) / (a*d - b*c), the non-orthogonal component of
// the linear part. Near zero for a pure rotation+scale+translation.
func (t AffineTransform) Shear() float64 {
	return (t.A*t.C + t.B*t.D) / (t.A*t.D - t.B*t.C)
}

// IsShearWithin reports whether the absolute shear stays at or below threshold.
// A non-finite shear (degenerate linear part) is always considered out of bounds.
func (t AffineTransform) IsShearWithin(threshold float64) bool {
	s := t.Shear()
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return false
	}
	return math.Abs(s) <= threshold
}
