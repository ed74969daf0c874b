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

// Package pipeline wires bad-pixel repair, flattening, star detection,
// ICP registration, resampling and running-stats stacking into the
// single-pass stacker the CLI drives, threading configuration explicitly
// instead of through package-level globals.
package pipeline

import (
	"github.com/pbnjay/memory"

	"github.com/noga-stacklab/stackcore/internal/flatten"
)

// rowTileBudget caps how many input frames loadAll reads concurrently,
// sized from physical memory (one slot per 8 MiB, at least 64) the way the
// teacher's CLI sizes its stacking memory budget from memory.TotalMemory().
var rowTileBudget = func() int {
	totalMiB := memory.TotalMemory() / 1024 / 1024
	tiles := int(totalMiB / 8)
	if tiles < 64 {
		tiles = 64
	}
	return tiles
}()

// Config holds every knob the driver needs for one stacking run. It is
// built once by the CLI and passed down explicitly, rather than read from
// package-level flag variables the way the teacher's cmd/nightlight/main.go
// does — the pipeline here is a library, not a command.
type Config struct {
	// ReferencePath names the FITS file all other frames register against.
	// If empty, the first input frame is used as the reference.
	ReferencePath string

	// OutPath and OutStdevPath name the mean and standard-deviation output
	// files. OutStdevPath may be empty to skip writing the stdev frame.
	OutPath      string
	OutStdevPath string

	// NoRegistration disables ICP registration and resampling; frames are
	// stacked as loaded.
	NoRegistration bool

	// Subsample scales the output canvas relative to the reference frame
	// (1 = same size, 2 = double resolution, ...).
	Subsample float64

	// ShearThreshold gates per-frame registration: a frame whose fitted
	// affine transform's shear magnitude exceeds this value is dropped
	// from the stack and does not update the carried-forward guess.
	ShearThreshold float64

	// StarThreshold is the percentile (0..100), counted from the brightest
	// pixel, at which flatten cuts before star detection: only the
	// brightest StarThreshold percent of pixels stay positive.
	StarThreshold float64

	// FlattenStrategy selects the background-suppression back-end.
	FlattenStrategy flatten.Strategy

	// FreqRemoval is flatten's k parameter. The FFT strategy zeroes the DFT
	// bins within k of zero in each dimension, so a larger k suppresses
	// more; the wavelet strategy zeroes everything coarser than the finest
	// k scales, so a larger k suppresses less.
	FreqRemoval int

	// DumpDir, when non-empty, enables diagnostic dumps of intermediate
	// per-frame state below it.
	DumpDir string
	// DumpFlat and DumpStars gate which diagnostics are written under
	// DumpDir: the flattened frame and the detected star field image.
	DumpFlat  bool
	DumpStars bool
}

// DefaultConfig returns the stacker's default parameters.
func DefaultConfig() Config {
	return Config{
		Subsample:       1,
		ShearThreshold:  0.001,
		StarThreshold:   1.0,
		FlattenStrategy: flatten.Wavelet,
		FreqRemoval:     2,
	}
}

// ConfigError reports an invalid or incomplete Config.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "pipeline: " + e.Msg }

// Validate checks the configuration for internally inconsistent settings
// the driver cannot recover from.
func (c *Config) Validate() error {
	if c.Subsample <= 0 {
		return &ConfigError{Msg: "subsample must be positive"}
	}
	if c.ShearThreshold < 0 {
		return &ConfigError{Msg: "shear_threshhold must be non-negative"}
	}
	if c.StarThreshold < 0 || c.StarThreshold > 100 {
		return &ConfigError{Msg: "star_threshhold must be in [0, 100]"}
	}
	return nil
}
