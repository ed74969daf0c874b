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

package icp

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// MaxIterations bounds the closest-pair/refit loop. The pairing is
// guaranteed to either converge to a stable match set or exhaust this
// ceiling, in which case the last refit is returned rather than an error.
const MaxIterations = 32

// pair identifies a matched (reference index, source index).
type pair struct {
	ref, src int
}

// matchSet is a set of pairs; two match sets are equal iff they contain
// exactly the same pairs, independent of discovery order.
type matchSet []pair

func (m matchSet) equal(o matchSet) bool {
	if len(m) != len(o) {
		return false
	}
	seen := make(map[pair]bool, len(m))
	for _, p := range m {
		seen[p] = true
	}
	for _, p := range o {
		if !seen[p] {
			return false
		}
	}
	return true
}

// Solve estimates the affine transform mapping src onto ref, starting from
// guess g0, by iterated greedy closest-pair matching and an ordinary
// least-squares refit. It returns ErrInsufficientPoints if either list has
// fewer than two points, and ErrSolverDegenerate if the normal matrix is
// singular or the fit produces NaN.
func Solve(ref, src []Point, g0 AffineTransform) (AffineTransform, error) {
	if len(ref) < 2 || len(src) < 2 {
		return AffineTransform{}, ErrInsufficientPoints
	}

	count := minInt(len(ref), len(src)) / 2
	if count < 1 {
		return AffineTransform{}, ErrInsufficientPoints
	}

	g := g0
	var prev matchSet
	var tiedLastRound bool

	for iter := 0; iter < MaxIterations; iter++ {
		matches, tied := greedyMatch(ref, src, g, count)

		fitted, err := refit(ref, src, matches)
		if err != nil {
			return AffineTransform{}, err
		}

		converged := prev != nil && matchSet(matches).equal(prev)
		g = fitted
		prev = matches
		tiedLastRound = tied

		if converged {
			break
		}
	}

	if tiedLastRound {
		if polished, ok := polish(ref, src, prev, g); ok {
			g = polished
		}
	}
	return g, nil
}

// greedyMatch performs one round of the per-iteration procedure: repeat
// count times, find the closest remaining (ref, src) pair under the
// current guess, record it, and remove both indices from further
// consideration. Ties in squared distance are broken by lowest reference
// index, then lowest source index — the natural order of the scan below.
func greedyMatch(ref, src []Point, g AffineTransform, count int) (matchSet, bool) {
	skipR := make([]bool, len(ref))
	skipS := make([]bool, len(src))
	warped := g.ApplyAll(src)

	matches := make(matchSet, 0, count)
	anyTie := false

	for step := 0; step < count; step++ {
		bestI, bestJ := -1, -1
		bestD := math.Inf(1)
		tieThisStep := false

		for i := 0; i < len(ref); i++ {
			if skipR[i] {
				continue
			}
			for j := 0; j < len(src); j++ {
				if skipS[j] {
					continue
				}
				d := DistSquared(ref[i], warped[j])
				if d < bestD {
					bestD, bestI, bestJ = d, i, j
					tieThisStep = false
				} else if d == bestD {
					tieThisStep = true
				}
			}
		}
		if bestI < 0 {
			break
		}
		if tieThisStep {
			anyTie = true
		}
		matches = append(matches, pair{bestI, bestJ})
		skipR[bestI] = true
		skipS[bestJ] = true
	}
	return matches, anyTie
}

// refit solves the OLS normal equations G' = A*Bt*(B*Bt)^-1 where A's
// columns are the matched reference points and B's columns are the
// matched source points in homogeneous form.
func refit(ref, src []Point, matches matchSet) (AffineTransform, error) {
	n := len(matches)
	a := mat.NewDense(2, n, nil)
	b := mat.NewDense(3, n, nil)
	for k, m := range matches {
		a.Set(0, k, ref[m.ref].Row)
		a.Set(1, k, ref[m.ref].Col)
		b.Set(0, k, src[m.src].Row)
		b.Set(1, k, src[m.src].Col)
		b.Set(2, k, 1)
	}

	var bbt mat.Dense
	bbt.Mul(b, b.T())

	var bbtInv mat.Dense
	if err := bbtInv.Inverse(&bbt); err != nil {
		return AffineTransform{}, ErrSolverDegenerate
	}

	var abt mat.Dense
	abt.Mul(a, b.T())

	var g mat.Dense
	g.Mul(&abt, &bbtInv)

	vals := [6]float64{g.At(0, 0), g.At(0, 1), g.At(0, 2), g.At(1, 0), g.At(1, 1), g.At(1, 2)}
	for _, v := range vals {
		if math.IsNaN(v) {
			return AffineTransform{}, ErrSolverDegenerate
		}
	}
	return AffineTransform{
		A: vals[0], B: vals[1], Tx: vals[2],
		C: vals[3], D: vals[4], Ty: vals[5],
	}, nil
}

// polish runs a Nelder-Mead refinement of the closed-form fit when the
// final matching round contained a tie, since a tied greedy pick may have
// settled on a locally sub-optimal pairing. It never replaces the OLS fit
// unless it finds a strictly lower sum-of-squared-residuals solution.
func polish(ref, src []Point, matches matchSet, start AffineTransform) (AffineTransform, bool) {
	objective := func(x []float64) float64 {
		t := AffineTransform{A: x[0], B: x[1], Tx: x[2], C: x[3], D: x[4], Ty: x[5]}
		sum := 0.0
		for _, m := range matches {
			p := t.Apply(src[m.src])
			sum += DistSquared(ref[m.ref], p)
		}
		return sum
	}

	x0 := []float64{start.A, start.B, start.Tx, start.C, start.D, start.Ty}
	startCost := objective(x0)

	res, err := optimize.Minimize(optimize.Problem{Func: objective}, x0, nil, &optimize.NelderMead{})
	if err != nil || res == nil || res.X == nil {
		return AffineTransform{}, false
	}
	if res.F >= startCost {
		return AffineTransform{}, false
	}
	x := res.X
	return AffineTransform{A: x[0], B: x[1], Tx: x[2], C: x[3], D: x[4], Ty: x[5]}, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
