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
	"fmt"
	"math"
	"path/filepath"

	"github.com/noga-stacklab/stackcore/internal/fitsio"
	"github.com/noga-stacklab/stackcore/internal/starfield"
)

// minOverlayRadius keeps single-pixel blobs from rendering as an invisible
// dot in the star-overlay dump.
const minOverlayRadius = 1.5

// DumpSink writes diagnostic intermediate state for a frame, named by
// index, to some destination. The no-op sink is used when diagnostics
// are disabled so the driver never has to branch on whether dumping is
// configured.
type DumpSink interface {
	Flat(index int, img *fitsio.Image) error
	Stars(index int, stars starfield.List, rows, cols int) error
}

type noopSink struct{}

func (noopSink) Flat(int, *fitsio.Image) error                     { return nil }
func (noopSink) Stars(int, starfield.List, int, int) error          { return nil }

// fileDumpSink writes each frame's flattened image and/or detected star
// field to `dir/flat%04d.fits` and `dir/stars%04d.fits`, mirroring the
// teacher's filename-pattern diagnostics (ops.NewOpSave(*pPre), NewOpSave
// (*stars)) but with the pattern fixed instead of user-supplied, since
// the driver here is a library rather than a flag-driven CLI operator
// chain.
type fileDumpSink struct {
	dir        string
	writeFlat  bool
	writeStars bool
}

// NewDumpSink returns a DumpSink honoring cfg's DumpDir/DumpFlat/DumpStars
// settings, or a no-op sink if DumpDir is empty.
func NewDumpSink(cfg Config) DumpSink {
	if cfg.DumpDir == "" {
		return noopSink{}
	}
	return &fileDumpSink{dir: cfg.DumpDir, writeFlat: cfg.DumpFlat, writeStars: cfg.DumpStars}
}

func (s *fileDumpSink) Flat(index int, img *fitsio.Image) error {
	if !s.writeFlat {
		return nil
	}
	return fitsio.Save(filepath.Join(s.dir, fmt.Sprintf("flat%04d.fits", index)), img)
}

// Stars renders each detected star as a filled circle sized by its blob's
// disk-equivalent radius, colored by flux density (brightness per unit
// area) rather than raw brightness, so faint extended blobs and bright
// compact ones read at comparable overlay intensity.
func (s *fileDumpSink) Stars(index int, stars starfield.List, rows, cols int) error {
	if !s.writeStars {
		return nil
	}
	img := fitsio.New(rows, cols)
	for _, star := range stars {
		radius := math.Sqrt(float64(star.Size) / math.Pi)
		if radius < minOverlayRadius {
			radius = minOverlayRadius
		}
		img.FillCircle(star.Pos.Row, star.Pos.Col, radius, star.Brightness/(radius*radius*math.Pi))
	}
	return fitsio.Save(filepath.Join(s.dir, fmt.Sprintf("stars%04d.fits", index)), img)
}
