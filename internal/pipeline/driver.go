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
	"runtime"

	"github.com/noga-stacklab/stackcore/internal/badpixel"
	"github.com/noga-stacklab/stackcore/internal/fitsio"
	"github.com/noga-stacklab/stackcore/internal/flatten"
	"github.com/noga-stacklab/stackcore/internal/icp"
	"github.com/noga-stacklab/stackcore/internal/log"
	"github.com/noga-stacklab/stackcore/internal/resample"
	"github.com/noga-stacklab/stackcore/internal/runningstats"
	"github.com/noga-stacklab/stackcore/internal/starfield"
)

// Run executes one full stacking pass: load the reference, register and
// resample every input against it, accumulate running mean/stdev, and
// write the configured outputs. Frames are registered and stacked strictly
// one at a time; the inputs are read concurrently up front by loadAll, and
// resampling is row-parallel. Flattening runs on a single goroutine.
func Run(cfg Config, inputs []string, logger *log.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(inputs) == 0 {
		return &ConfigError{Msg: "at least one input frame is required"}
	}

	refPath := cfg.ReferencePath
	if refPath == "" {
		refPath = inputs[0]
	}
	logger.Infof("loading reference %s\n", refPath)
	ref, err := fitsio.Load(refPath)
	if err != nil {
		return err
	}
	repaired, n := badpixel.Repair(ref)
	if n > 0 {
		logger.Infof("repaired %d bad pixels in reference\n", n)
	}
	ref = repaired

	var refStars []icp.Point
	if !cfg.NoRegistration {
		flat := flatten.Flatten(ref, cfg.FlattenStrategy, cfg.FreqRemoval, cfg.StarThreshold)
		stars := starfield.Detect(flat)
		refStars = stars.Positions()
		logger.Infof("detected %d reference stars\n", len(stars))
	}

	sink := NewDumpSink(cfg)
	acc := runningstats.New()
	guess := icp.Identity()

	loaded, err := loadAll(inputs)
	if err != nil {
		return err // IoError/FormatError: abort the run
	}
	for i, frame := range loaded {
		out, newGuess, ok, err := registerAndResample(cfg, frame, refStars, guess, sink, i, logger)
		if err != nil {
			logger.Warnf("skipping %s: %s\n", inputs[i], err.Error())
			continue // SolverDegenerate/InsufficientPoints: skip this frame only
		}
		if !ok {
			continue // shear gate rejected the frame
		}
		guess = newGuess
		if err := acc.Add(out); err != nil {
			return err // ShapeMismatch: abort the run
		}
	}

	if acc.N() == 0 {
		return &ConfigError{Msg: "no frames were successfully stacked"}
	}
	logger.Infof("stacked %d of %d frames\n", acc.N(), len(inputs))

	if cfg.OutPath != "" {
		mean := acc.Mean()
		mean.Header = ref.Header.Clone()
		if err := fitsio.Save(cfg.OutPath, mean); err != nil {
			return err
		}
	}
	if cfg.OutStdevPath != "" {
		stdev := acc.Stdev()
		stdev.Header = ref.Header.Clone()
		if err := fitsio.Save(cfg.OutStdevPath, stdev); err != nil {
			return err
		}
	}
	return nil
}

// registerAndResample repairs, optionally registers, and resamples one
// frame. ok is false when the shear gate rejected the frame: the caller
// must not update its carried guess or stack the result.
func registerAndResample(cfg Config, frame *fitsio.Image, refStars []icp.Point, guess icp.AffineTransform, sink DumpSink, index int, logger *log.Logger) (out *fitsio.Image, newGuess icp.AffineTransform, ok bool, err error) {
	repaired, _ := badpixel.Repair(frame)
	frame = repaired

	if cfg.NoRegistration {
		return resample.Apply(frame, icp.Identity(), cfg.Subsample), guess, true, nil
	}

	flat := flatten.Flatten(frame, cfg.FlattenStrategy, cfg.FreqRemoval, cfg.StarThreshold)
	if err := sink.Flat(index, flat); err != nil {
		logger.Warnf("dump flat %d: %s\n", index, err.Error())
	}
	stars := starfield.Detect(flat)
	if err := sink.Stars(index, stars, frame.Rows, frame.Cols); err != nil {
		logger.Warnf("dump stars %d: %s\n", index, err.Error())
	}

	g, err := icp.Solve(refStars, stars.Positions(), guess)
	if err != nil {
		return nil, icp.AffineTransform{}, false, err
	}

	if !g.IsShearWithin(cfg.ShearThreshold) {
		logger.Infof("frame %d rejected: shear %.5g exceeds threshold %.5g\n", index, g.Shear(), cfg.ShearThreshold)
		return nil, icp.AffineTransform{}, false, nil
	}

	toSource, err := g.Invert()
	if err != nil {
		return nil, icp.AffineTransform{}, false, err
	}
	return resample.Apply(frame, toSource, cfg.Subsample), g, true, nil
}

// loadAll reads every input frame, running at most min(GOMAXPROCS,
// rowTileBudget) loads at once. Every loaded frame stays in memory until
// Run's stacking loop ends, so this bounds the loads in flight, not the
// number of resident frames. A failed load is an IoError/FormatError,
// both of which abort the whole run; loadAll reports the first one found,
// in input order, rather than a log-and-continue per frame.
func loadAll(inputs []string) ([]*fitsio.Image, error) {
	workers := runtime.GOMAXPROCS(0)
	if workers > rowTileBudget {
		workers = rowTileBudget
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	out := make([]*fitsio.Image, len(inputs))
	errs := make([]error, len(inputs))
	limiter := make(chan struct{}, workers)
	done := make(chan int, len(inputs))
	for i, path := range inputs {
		limiter <- struct{}{}
		go func(i int, path string) {
			defer func() { <-limiter; done <- i }()
			img, err := fitsio.Load(path)
			if err != nil {
				errs[i] = &FrameError{Path: path, Err: err}
				return
			}
			out[i] = img
		}(i, path)
	}
	for range inputs {
		<-done
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
