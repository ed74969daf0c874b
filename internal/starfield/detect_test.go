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

package starfield

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noga-stacklab/stackcore/internal/fitsio"
)

// disk sets a filled disk of the given radius and value, centered at (cr,cc).
func disk(img *fitsio.Image, cr, cc, radius int, v float64) {
	for r := cr - radius; r <= cr+radius; r++ {
		for c := cc - radius; c <= cc+radius; c++ {
			if r < 0 || r >= img.Rows || c < 0 || c >= img.Cols {
				continue
			}
			dr, dc := r-cr, c-cc
			if dr*dr+dc*dc <= radius*radius {
				img.Set(r, c, v)
			}
		}
	}
}

func TestDetectFindsCenteredStar(t *testing.T) {
	img := fitsio.New(50, 50)
	disk(img, 25, 30, 4, 100)

	stars := Detect(img)
	require.Len(t, stars, 1)
	assert.InDelta(t, 25, stars[0].Pos.Row, 0.5)
	assert.InDelta(t, 30, stars[0].Pos.Col, 0.5)
	assert.Greater(t, stars[0].Size, 0)
}

func TestDetectRejectsTooSmallBlob(t *testing.T) {
	img := fitsio.New(20, 20)
	img.Set(10, 10, 5) // single pixel blob, well under minBlobPixels

	stars := Detect(img)
	assert.Empty(t, stars)
}

func TestDetectSortsAscendingByBrightness(t *testing.T) {
	img := fitsio.New(60, 60)
	disk(img, 10, 10, 4, 10)
	disk(img, 40, 40, 4, 200)

	stars := Detect(img)
	require.Len(t, stars, 2)
	assert.Less(t, stars[0].Brightness, stars[1].Brightness)
}

func TestDetectZeroesVisitedPixels(t *testing.T) {
	img := fitsio.New(30, 30)
	disk(img, 15, 15, 4, 50)

	_ = Detect(img)
	for _, v := range img.Data {
		assert.Equal(t, 0.0, v)
	}
}
