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

package fitsio

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	img := New(4, 5)
	for i := range img.Data {
		img.Data[i] = float64(i) - 3.5
	}
	img.Header.Strings["OBJECT"] = "M31"
	img.Header.Floats["EXPTIME"] = 30.5
	img.Header.History = append(img.Header.History, "stacked")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, img))

	got, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, img.Rows, got.Rows)
	assert.Equal(t, img.Cols, got.Cols)
	assert.InDeltaSlice(t, img.Data, got.Data, 1e-9)
	assert.Equal(t, "M31", got.Header.Strings["OBJECT"])
	assert.InDelta(t, 30.5, got.Header.Floats["EXPTIME"], 1e-9)
}

func TestReadRejectsWrongDimensionality(t *testing.T) {
	img := New(2, 2)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, img))
	raw := buf.Bytes()

	// Corrupt the NAXIS card's value digit to 3, keeping the fixed 80-byte
	// record width intact.
	naxisCardRE := regexp.MustCompile(`NAXIS   =( ){20}2`)
	loc := naxisCardRE.FindIndex(raw)
	require.NotNil(t, loc, "expected a NAXIS=2 header card")
	corrupted := append([]byte(nil), raw...)
	corrupted[loc[1]-1] = '3'
	_, err := Read(bytes.NewReader(corrupted))
	require.Error(t, err)
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestNewLikeInheritsHeader(t *testing.T) {
	ref := New(3, 3)
	ref.Header.Strings["TELESCOP"] = "C8"
	out := NewLike(ref)
	assert.Equal(t, "C8", out.Header.Strings["TELESCOP"])
	out.Header.Strings["TELESCOP"] = "changed"
	assert.Equal(t, "C8", ref.Header.Strings["TELESCOP"])
}

func TestFillCircleColorsCenterAndStaysInBounds(t *testing.T) {
	img := New(21, 21)
	img.FillCircle(10, 10, 4, 7)
	assert.Equal(t, 7.0, img.At(10, 10))
	assert.Equal(t, 0.0, img.At(0, 0))

	edge := New(5, 5)
	edge.FillCircle(0, 0, 3, 1) // centre at a corner: half the disk is out of bounds
	for _, v := range edge.Data {
		if v != 0 && v != 1 {
			t.Fatalf("unexpected pixel value %v", v)
		}
	}
}
