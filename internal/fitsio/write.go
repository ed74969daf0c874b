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
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// Save writes img to fileName as a 2-D TDOUBLE FITS file, creating or
// truncating it as needed. The file handle is closed on every return path.
func Save(fileName string, img *Image) error {
	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return &IoError{Path: fileName, Err: err}
	}
	defer f.Close()
	if err := Write(f, img); err != nil {
		return &IoError{Path: fileName, Err: err}
	}
	return nil
}

// Write serializes img to w as a 2-D TDOUBLE FITS file.
func Write(w io.Writer, img *Image) error {
	sb := strings.Builder{}
	writeBool(&sb, "SIMPLE", true, "FITS standard 4.0")
	writeInt(&sb, "BITPIX", -64, "64-bit IEEE floating point")
	writeInt(&sb, "NAXIS", 2, "number of axes")
	writeInt(&sb, "NAXIS1", int64(img.Cols), "axis 1 length")
	writeInt(&sb, "NAXIS2", int64(img.Rows), "axis 2 length")
	writeFloat(&sb, "BZERO", 0, "zero offset")
	writeFloat(&sb, "BSCALE", 1, "value scaler")

	for k, v := range img.Header.Bools {
		writeBool(&sb, k, v, "")
	}
	for k, v := range img.Header.Ints {
		writeInt(&sb, k, v, "")
	}
	for k, v := range img.Header.Floats {
		writeFloat(&sb, k, v, "")
	}
	for k, v := range img.Header.Strings {
		writeString(&sb, k, v, "")
	}
	for k, v := range img.Header.Dates {
		writeString(&sb, k, v, "")
	}
	for _, c := range img.Header.Comments {
		writeFreeform(&sb, "COMMENT", c)
	}
	for _, h := range img.Header.History {
		writeFreeform(&sb, "HISTORY", h)
	}
	writeEnd(&sb)

	if rem := sb.Len() % blockSize; rem > 0 {
		sb.WriteString(strings.Repeat(" ", blockSize-rem))
	}

	if _, err := w.Write([]byte(sb.String())); err != nil {
		return err
	}
	return writeFloat64Data(w, img.Data)
}

func writeBool(w io.Writer, key string, value bool, comment string) {
	v := "F"
	if value {
		v = "T"
	}
	fmt.Fprintf(w, "%-8s= %20s / %-47s", clip(key, 8), v, clip(comment, 47))
}

func writeInt(w io.Writer, key string, value int64, comment string) {
	fmt.Fprintf(w, "%-8s= %20d / %-47s", clip(key, 8), value, clip(comment, 47))
}

func writeFloat(w io.Writer, key string, value float64, comment string) {
	fmt.Fprintf(w, "%-8s= %20g / %-47s", clip(key, 8), value, clip(comment, 47))
}

func writeString(w io.Writer, key, value, comment string) {
	escaped := strings.ReplaceAll(value, "'", "''")
	if len(escaped) > 18 {
		escaped = escaped[:18]
	}
	fmt.Fprintf(w, "%-8s= '%s'%s / %-47s", clip(key, 8), escaped, strings.Repeat(" ", 18-len(escaped)), clip(comment, 47))
}

func writeFreeform(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%-8s%-72s", key, clip(" "+value, 72))
}

func writeEnd(w io.Writer) {
	fmt.Fprintf(w, "END%s", strings.Repeat(" ", lineSize-3))
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// writeFloat64Data writes data in network byte order, replacing NaN with
// zero for compatibility with viewers that choke on IEEE payload NaNs.
func writeFloat64Data(w io.Writer, data []float64) error {
	const bytesPerValue = 8
	buf := make([]byte, readBufLen)
	perBatch := len(buf) / bytesPerValue

	for start := 0; start < len(data); start += perBatch {
		end := start + perBatch
		if end > len(data) {
			end = len(data)
		}
		n := end - start
		for i := 0; i < n; i++ {
			v := data[start+i]
			if math.IsNaN(v) {
				v = 0
			}
			binary.BigEndian.PutUint64(buf[i*bytesPerValue:], math.Float64bits(v))
		}
		if _, err := w.Write(buf[:n*bytesPerValue]); err != nil {
			return err
		}
	}
	return nil
}
