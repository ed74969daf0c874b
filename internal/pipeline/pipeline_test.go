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

package pipeline

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noga-stacklab/stackcore/internal/fitsio"
	"github.com/noga-stacklab/stackcore/internal/log"
	"github.com/noga-stacklab/stackcore/internal/runningstats"
)

func starfieldFrame(rows, cols, dr, dc int) *fitsio.Image {
	img := fitsio.New(rows, cols)
	for i := range img.Data {
		img.Data[i] = 100
	}
	centers := [][2]int{{20, 20}, {20, 80}, {80, 20}, {80, 80}, {50, 50}, {30, 70}, {70, 30}, {15, 50}, {50, 15}, {85, 50}}
	for _, c := range centers {
		r, cc := c[0]+dr, c[1]+dc
		for drr := -3; drr <= 3; drr++ {
			for dcc := -3; dcc <= 3; dcc++ {
				if drr*drr+dcc*dcc <= 9 {
					rr, ccc := r+drr, cc+dcc
					if rr >= 0 && rr < rows && ccc >= 0 && ccc < cols {
						img.Set(rr, ccc, 5000)
					}
				}
			}
		}
	}
	return img
}

func writeFITS(t *testing.T, dir, name string, img *fitsio.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, fitsio.Save(path, img))
	return path
}

func uniform(rows, cols int, v float64) *fitsio.Image {
	img := fitsio.New(rows, cols)
	for i := range img.Data {
		img.Data[i] = v
	}
	return img
}

func TestRunSingleInputIsItsOwnMean(t *testing.T) {
	dir := t.TempDir()
	// Uniform so the bad-pixel pass is a no-op and the comparison is exact.
	img := uniform(30, 30, 500)
	inPath := writeFITS(t, dir, "a.fits", img)
	outPath := filepath.Join(dir, "out.fits")

	cfg := DefaultConfig()
	cfg.NoRegistration = true
	cfg.OutPath = outPath

	logger := log.New(&bytes.Buffer{})
	require.NoError(t, Run(cfg, []string{inPath}, logger))

	out, err := fitsio.Load(outPath)
	require.NoError(t, err)
	for i := range img.Data {
		assert.InDelta(t, img.Data[i], out.Data[i], 1e-6)
	}
}

func TestRunTwoIdenticalInputsGivesZeroStdev(t *testing.T) {
	dir := t.TempDir()
	img := uniform(30, 30, 500)
	a := writeFITS(t, dir, "a.fits", img)
	b := writeFITS(t, dir, "b.fits", img)
	outPath := filepath.Join(dir, "out.fits")
	stdevPath := filepath.Join(dir, "stdev.fits")

	cfg := DefaultConfig()
	cfg.NoRegistration = true
	cfg.OutPath = outPath
	cfg.OutStdevPath = stdevPath

	logger := log.New(&bytes.Buffer{})
	require.NoError(t, Run(cfg, []string{a, b}, logger))

	stdev, err := fitsio.Load(stdevPath)
	require.NoError(t, err)
	for _, v := range stdev.Data {
		assert.InDelta(t, 0, v, 1e-9)
	}
}

func TestRunTwoFramesPlusMinusOneGivesUnitStdev(t *testing.T) {
	dir := t.TempDir()
	hi := uniform(20, 20, 101)
	lo := uniform(20, 20, 99)
	a := writeFITS(t, dir, "hi.fits", hi)
	b := writeFITS(t, dir, "lo.fits", lo)
	outPath := filepath.Join(dir, "out.fits")
	stdevPath := filepath.Join(dir, "stdev.fits")

	cfg := DefaultConfig()
	cfg.NoRegistration = true
	cfg.OutPath = outPath
	cfg.OutStdevPath = stdevPath

	logger := log.New(&bytes.Buffer{})
	require.NoError(t, Run(cfg, []string{a, b}, logger))

	mean, err := fitsio.Load(outPath)
	require.NoError(t, err)
	stdev, err := fitsio.Load(stdevPath)
	require.NoError(t, err)
	for i := range mean.Data {
		assert.InDelta(t, 100, mean.Data[i], 1e-6)
		assert.InDelta(t, 1, stdev.Data[i], 1e-6)
	}
}

func TestRunRegistersShiftedStarField(t *testing.T) {
	dir := t.TempDir()
	ref := starfieldFrame(100, 100, 0, 0)
	shifted := starfieldFrame(100, 100, 5, -3)
	refPath := writeFITS(t, dir, "ref.fits", ref)
	shiftedPath := writeFITS(t, dir, "shifted.fits", shifted)
	outPath := filepath.Join(dir, "out.fits")

	cfg := DefaultConfig()
	cfg.ReferencePath = refPath
	cfg.OutPath = outPath

	logger := log.New(&bytes.Buffer{})
	require.NoError(t, Run(cfg, []string{refPath, shiftedPath}, logger))

	out, err := fitsio.Load(outPath)
	require.NoError(t, err)
	// The star at (50,50) in reference space should still carry bright
	// flux after registration pulled the shifted frame back into alignment.
	assert.Greater(t, out.At(50, 50), 1000.0)
}

func TestRunDropsUnregisterableFrameRatherThanCorruptingStack(t *testing.T) {
	dir := t.TempDir()
	ref := starfieldFrame(100, 100, 0, 0)
	// Too few stars to assemble a trustworthy match set: the driver must
	// drop this frame rather than fold a bad fit into the running stack.
	sparse := fitsio.New(100, 100)
	for i := range sparse.Data {
		sparse.Data[i] = 100
	}
	sparse.Set(10, 10, 5000)
	sparse.Set(90, 90, 5000)

	refPath := writeFITS(t, dir, "ref.fits", ref)
	sparsePath := writeFITS(t, dir, "sparse.fits", sparse)
	outPath := filepath.Join(dir, "out.fits")

	cfg := DefaultConfig()
	cfg.ReferencePath = refPath
	cfg.OutPath = outPath

	logger := log.New(&bytes.Buffer{})
	err := Run(cfg, []string{refPath, sparsePath}, logger)
	require.NoError(t, err)

	out, err := fitsio.Load(outPath)
	require.NoError(t, err)
	// Only the reference itself should have made it into the stack: its
	// background and star cores survive, unperturbed by the dropped frame.
	assert.InDelta(t, 100, out.At(0, 0), 1e-6)
	assert.Greater(t, out.At(20, 20), 1000.0)
}

func TestRunRepairsHotPixelBeforeStacking(t *testing.T) {
	dir := t.TempDir()
	img := fitsio.New(10, 10)
	for i := range img.Data {
		img.Data[i] = 100
	}
	img.Set(5, 5, 100000) // hot pixel, far outside the local neighborhood
	inPath := writeFITS(t, dir, "hot.fits", img)
	outPath := filepath.Join(dir, "out.fits")

	cfg := DefaultConfig()
	cfg.NoRegistration = true
	cfg.OutPath = outPath

	logger := log.New(&bytes.Buffer{})
	require.NoError(t, Run(cfg, []string{inPath}, logger))

	out, err := fitsio.Load(outPath)
	require.NoError(t, err)
	assert.InDelta(t, 100, out.At(5, 5), 1e-6)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Subsample = 0
	err := cfg.Validate()
	require.Error(t, err)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestRunRequiresAtLeastOneInput(t *testing.T) {
	logger := log.New(&bytes.Buffer{})
	err := Run(DefaultConfig(), nil, logger)
	require.Error(t, err)
}

func TestRunAbortsOnUnreadableInput(t *testing.T) {
	dir := t.TempDir()
	good := writeFITS(t, dir, "a.fits", uniform(10, 10, 500))
	missing := filepath.Join(dir, "does-not-exist.fits")

	cfg := DefaultConfig()
	cfg.NoRegistration = true
	cfg.OutPath = filepath.Join(dir, "out.fits")

	logger := log.New(&bytes.Buffer{})
	// A load failure is an IoError, which must abort the whole run rather
	// than silently drop the frame and stack only the survivors.
	err := Run(cfg, []string{good, missing}, logger)
	require.Error(t, err)
}

func TestRunAbortsOnShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	a := writeFITS(t, dir, "a.fits", uniform(10, 10, 500))
	b := writeFITS(t, dir, "b.fits", uniform(20, 20, 500))

	cfg := DefaultConfig()
	cfg.NoRegistration = true
	cfg.OutPath = filepath.Join(dir, "out.fits")

	logger := log.New(&bytes.Buffer{})
	// With registration disabled, two differently-shaped frames resample
	// to differently-shaped outputs: the accumulator must reject the
	// second with ShapeMismatch, and Run must abort rather than continue.
	err := Run(cfg, []string{a, b}, logger)
	require.Error(t, err)
	var sm *runningstats.ShapeMismatch
	assert.ErrorAs(t, err, &sm)
}
