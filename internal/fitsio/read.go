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
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"strings"
)

const readBufLen = 16 * 1024

// Load reads a 2-D TDOUBLE FITS image from fileName, transparently
// decompressing a .gz/.gzip suffix. The file handle is closed on every
// return path.
func Load(fileName string) (*Image, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, &IoError{Path: fileName, Err: err}
	}
	defer f.Close()

	var r io.Reader = f
	ext := strings.ToLower(path.Ext(fileName))
	if ext == ".gz" || ext == ".gzip" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, &IoError{Path: fileName, Err: err}
		}
		defer gz.Close()
		r = gz
	}

	img, err := Read(r)
	if err != nil {
		if _, ok := err.(*FormatError); ok {
			return nil, err
		}
		return nil, &IoError{Path: fileName, Err: err}
	}
	return img, nil
}

// Read parses a 2-D TDOUBLE FITS image from r.
func Read(r io.Reader) (*Image, error) {
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	if !header.Bools["SIMPLE"] {
		return nil, &FormatError{Msg: "missing mandatory SIMPLE=T header card"}
	}
	delete(header.Bools, "SIMPLE")

	bitpix, ok := popInt(&header, "BITPIX")
	if !ok {
		return nil, &FormatError{Msg: "missing mandatory BITPIX header card"}
	}
	if bitpix != -64 {
		return nil, &FormatError{Msg: fmt.Sprintf("unsupported BITPIX=%d, only -64 (TDOUBLE) is supported", bitpix)}
	}

	naxis, ok := popInt(&header, "NAXIS")
	if !ok {
		return nil, &FormatError{Msg: "missing mandatory NAXIS header card"}
	}
	if naxis != 2 {
		return nil, &FormatError{Msg: fmt.Sprintf("unsupported NAXIS=%d, only 2-D images are supported", naxis)}
	}

	cols, ok := popInt(&header, "NAXIS1")
	if !ok {
		return nil, &FormatError{Msg: "missing mandatory NAXIS1 header card"}
	}
	rows, ok := popInt(&header, "NAXIS2")
	if !ok {
		return nil, &FormatError{Msg: "missing mandatory NAXIS2 header card"}
	}
	if rows < 1 || cols < 1 {
		return nil, &FormatError{Msg: fmt.Sprintf("invalid dimensions %dx%d", rows, cols)}
	}

	bzero := popFloatOr(&header, "BZERO", 0)
	bscale := popFloatOr(&header, "BSCALE", 1)

	img := &Image{Rows: int(rows), Cols: int(cols), Header: header}
	img.Data = make([]float64, int(rows)*int(cols))
	if err := readFloat64Data(r, img.Data, bzero, bscale); err != nil {
		return nil, err
	}
	return img, nil
}

func popInt(h *Header, key string) (int64, bool) {
	if v, ok := h.Ints[key]; ok {
		delete(h.Ints, key)
		return v, true
	}
	return 0, false
}

func popFloatOr(h *Header, key string, fallback float64) float64 {
	if v, ok := h.Floats[key]; ok {
		delete(h.Floats, key)
		return v
	}
	if v, ok := h.Ints[key]; ok {
		delete(h.Ints, key)
		return float64(v)
	}
	return fallback
}

// readFloat64Data reads len(dst) big-endian (network byte order) float64
// values from r in fixed-size batches, applying the BZERO/BSCALE affine
// adjustment as it goes.
func readFloat64Data(r io.Reader, dst []float64, bzero, bscale float64) error {
	const bytesPerValue = 8
	buf := make([]byte, readBufLen)

	dataIndex := 0
	leftover := 0
	for dataIndex < len(dst) {
		toRead := (len(dst)-dataIndex)*bytesPerValue - leftover
		if toRead > len(buf) {
			toRead = len(buf)
		}
		n, err := r.Read(buf[leftover : leftover+toRead])
		if err != nil && !(err == io.EOF && n > 0) {
			return fmt.Errorf("fitsio: reading pixel data: %w", err)
		}
		available := leftover + n
		whole := available &^ (bytesPerValue - 1)
		for i := 0; i < whole; i += bytesPerValue {
			bits := binary.BigEndian.Uint64(buf[i : i+bytesPerValue])
			v := math.Float64frombits(bits)*bscale + bzero
			dst[dataIndex+i/bytesPerValue] = v
		}
		dataIndex += whole / bytesPerValue
		leftover = available - whole
		copy(buf[:leftover], buf[whole:available])
		if n == 0 && leftover == 0 && dataIndex < len(dst) {
			return fmt.Errorf("fitsio: unexpected end of pixel data at %d/%d values", dataIndex, len(dst))
		}
	}
	return nil
}
