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

package resample

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noga-stacklab/stackcore/internal/fitsio"
	"github.com/noga-stacklab/stackcore/internal/icp"
)

func TestIdentityPreservesInteriorPixels(t *testing.T) {
	src := fitsio.New(10, 10)
	for r := 0; r < 10; r++ {
		for c := 0; c < 10; c++ {
			src.Set(r, c, float64(r*10+c))
		}
	}
	out := Apply(src, icp.Identity(), 1)
	for r := 1; r < 9; r++ {
		for c := 1; c < 9; c++ {
			assert.InDelta(t, src.At(r, c), out.At(r, c), 1e-9)
		}
	}
}

func TestTransformRoundTrip(t *testing.T) {
	src := fitsio.New(20, 20)
	for r := 0; r < 20; r++ {
		for c := 0; c < 20; c++ {
			src.Set(r, c, float64(r+c))
		}
	}
	t1 := icp.AffineTransform{A: 1, B: 0, Tx: 2, C: 0, D: 1, Ty: 3}
	inv, err := t1.Invert()
	assert.NoError(t, err)

	warped := Apply(src, t1, 1)
	back := Apply(warped, inv, 1)

	for r := 5; r < 15; r++ {
		for c := 5; c < 15; c++ {
			assert.InDelta(t, src.At(r, c), back.At(r, c), 1e-6)
		}
	}
}

func TestOutOfBoundsZeroPadded(t *testing.T) {
	src := fitsio.New(5, 5)
	for i := range src.Data {
		src.Data[i] = 9
	}
	shift := icp.AffineTransform{A: 1, B: 0, Tx: -100, C: 0, D: 1, Ty: 0}
	out := Apply(src, shift, 1)
	assert.Equal(t, 0.0, out.At(0, 0))
}

func TestSubsampleChangesShape(t *testing.T) {
	src := fitsio.New(4, 6)
	out := Apply(src, icp.Identity(), 2)
	assert.Equal(t, 8, out.Rows)
	assert.Equal(t, 12, out.Cols)
}
