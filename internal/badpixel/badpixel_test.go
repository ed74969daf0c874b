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

package badpixel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noga-stacklab/stackcore/internal/fitsio"
)

func uniform(rows, cols int, v float64) *fitsio.Image {
	img := fitsio.New(rows, cols)
	for i := range img.Data {
		img.Data[i] = v
	}
	return img
}

func TestRepairLeavesCleanImageUnchanged(t *testing.T) {
	img := uniform(5, 5, 10)
	out, n := Repair(img)
	assert.Equal(t, 0, n)
	assert.Equal(t, img.Data, out.Data)
}

func TestRepairReplacesHotPixel(t *testing.T) {
	img := uniform(5, 5, 10)
	img.Set(2, 2, 1e6)

	out, n := Repair(img)
	assert.Equal(t, 1, n)
	assert.InDelta(t, 10, out.At(2, 2), 1e-9)
	// original image untouched
	assert.Equal(t, 1e6, img.At(2, 2))
}

func TestRepairLeavesBorderUntouched(t *testing.T) {
	img := uniform(4, 4, 10)
	img.Set(0, 0, 1e6)
	img.Set(3, 3, -1e6)

	out, n := Repair(img)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1e6, out.At(0, 0))
	assert.Equal(t, -1e6, out.At(3, 3))
}

func TestRepairPooledMatchesScalar(t *testing.T) {
	img := uniform(9, 7, 10)
	img.Set(4, 3, 1e6)
	img.Set(2, 5, -500)
	threshold := 10.0

	scalarOut := make([]float64, len(img.Data))
	copy(scalarOut, img.Data)
	scalarReplaced := repairScalar(scalarOut, img.Data, img.Rows, img.Cols, threshold)

	pooledOut := make([]float64, len(img.Data))
	copy(pooledOut, img.Data)
	pooledReplaced := repairPooled(pooledOut, img.Data, img.Rows, img.Cols, threshold)

	assert.Equal(t, scalarReplaced, pooledReplaced)
	assert.Equal(t, scalarOut, pooledOut)
}
