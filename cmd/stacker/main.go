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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/noga-stacklab/stackcore/internal/flatten"
	"github.com/noga-stacklab/stackcore/internal/log"
	"github.com/noga-stacklab/stackcore/internal/pipeline"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)

	reference := fs.String("reference", "", "use `PATH` as the registration reference; default is the first input")
	out := fs.String("out", "", "write stacked mean to `PATH` (must be .fits)")
	outStdev := fs.String("outstdev", "", "write per-pixel standard deviation to `PATH`")
	noReg := fs.Bool("noreg", false, "skip registration; stack the raw frames")
	subsample := fs.Float64("subsample", 1, "resample factor (real)")
	shearThreshold := fs.Float64("shear_threshhold", 0.001, "shear rejection threshold")
	starThreshold := fs.Float64("star_threshhold", 1.0, "percentile threshold for flatten")
	freqRemoval := fs.Int("freq_removal", 2, "low-frequency suppression parameter")
	dumpDir := fs.String("dump_dir", "", "directory for diagnostic FITS dumps")
	dumpFlat := fs.Bool("dump_flat", false, "enable dump of flattened detection images")
	dumpStars := fs.Bool("dump_stars", false, "enable dump of star-overlay images")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `stackcore

This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] img0.fits ... imgn.fits

Flags:
`, os.Args[0])
		fs.PrintDefaults()
	}

	// ContinueOnError plus an explicit exit here, rather than the package-level
	// flag.Parse's default ExitOnError (which exits 2), so an unrecognized flag
	// honors this program's -1 invalid-invocation exit code, same as below.
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(-1)
	}

	inputs := fs.Args()
	if len(inputs) < 1 {
		fs.Usage()
		os.Exit(-1)
	}

	logger := log.New(os.Stdout)

	cfg := pipeline.DefaultConfig()
	cfg.ReferencePath = *reference
	cfg.OutPath = *out
	cfg.OutStdevPath = *outStdev
	cfg.NoRegistration = *noReg
	cfg.Subsample = *subsample
	cfg.ShearThreshold = *shearThreshold
	cfg.StarThreshold = *starThreshold
	cfg.FreqRemoval = *freqRemoval
	cfg.FlattenStrategy = flatten.Wavelet
	cfg.DumpDir = *dumpDir
	cfg.DumpFlat = *dumpFlat
	cfg.DumpStars = *dumpStars

	if cfg.OutPath == "" && cfg.OutStdevPath == "" {
		fmt.Fprintln(os.Stderr, "error: at least one of -out or -outstdev is required")
		os.Exit(-1)
	}

	if err := pipeline.Run(cfg, inputs, logger); err != nil {
		logger.Errorf("%s\n", err.Error())
		os.Exit(1)
	}
}
