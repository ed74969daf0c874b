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
	"fmt"
	"io"
	"regexp"
	"strconv"
)

const blockSize = 2880
const lineSize = 80

// Header holds a FITS header's keyword/value pairs, grouped by value type,
// plus free-form comment and history lines.
type Header struct {
	Bools   map[string]bool
	Ints    map[string]int64
	Floats  map[string]float64
	Strings map[string]string
	Dates   map[string]string

	Comments []string
	History  []string

	end    bool
	length int
}

// NewHeader returns an empty, initialized header.
func NewHeader() Header {
	return Header{
		Bools:   make(map[string]bool),
		Ints:    make(map[string]int64),
		Floats:  make(map[string]float64),
		Strings: make(map[string]string),
		Dates:   make(map[string]string),
	}
}

// Clone returns a deep copy of h, used when the output mean/stdev image
// inherits the reference frame's header.
func (h Header) Clone() Header {
	c := NewHeader()
	for k, v := range h.Bools {
		c.Bools[k] = v
	}
	for k, v := range h.Ints {
		c.Ints[k] = v
	}
	for k, v := range h.Floats {
		c.Floats[k] = v
	}
	for k, v := range h.Strings {
		c.Strings[k] = v
	}
	for k, v := range h.Dates {
		c.Dates[k] = v
	}
	c.Comments = append([]string(nil), h.Comments...)
	c.History = append([]string(nil), h.History...)
	return c
}

var headerLineRE = compileHeaderLineRE()

// compileHeaderLineRE builds the regexp matching one 80-column FITS header
// line, classifying it as blank, HISTORY, COMMENT, END, or a keyword record
// whose value is boolean, integer, float, string, or date-typed.
func compileHeaderLineRE() *regexp.Regexp {
	white := `\s+`
	whiteOpt := `\s*`

	histLine := "HISTORY" + white + `(?P<H>.*)`
	commLine := "COMMENT" + white + `(?P<C>.*)`
	endLine := `(?P<E>END)` + whiteOpt

	key := `(?P<k>[A-Z0-9_-]+)`
	boo := `(?P<b>[TF])`
	inte := `(?P<i>[+-]?[0-9]+)`
	floa := `(?P<f>[+-]?[0-9]*\.[0-9]*(?:[ED][-+]?[0-9]+)?)`
	stri := `'(?P<s>[^']*)'`
	date := `(?P<d>[0-9]{1,4}-?[012][0-9]-?[0123][0-9]T[012][0-9]:?[0-5][0-9]:?[0-5][0-9].?[0-9]*)`
	val := "(?:" + boo + "|" + inte + "|" + floa + "|" + stri + "|" + date + ")"
	commOpt := `(?:/(?P<c>.*))?`
	keyLine := key + whiteOpt + "=" + whiteOpt + val + whiteOpt + commOpt

	lineRe := "^(?:" + white + "|" + histLine + "|" + commLine + "|" + keyLine + "|" + endLine + ")$"
	return regexp.MustCompile(lineRe)
}

// readHeader consumes 2880-byte header blocks from r until an END record is seen.
func readHeader(r io.Reader) (Header, error) {
	h := NewHeader()
	buf := make([]byte, blockSize)
	for !h.end {
		n, err := io.ReadFull(r, buf)
		if err != nil || n != blockSize {
			return Header{}, fmt.Errorf("fitsio: reading header block: %w", err)
		}
		h.length += n
		for line := 0; line < blockSize/lineSize && !h.end; line++ {
			raw := buf[line*lineSize : (line+1)*lineSize]
			sub := headerLineRE.FindSubmatch(raw)
			if sub == nil {
				continue
			}
			h.readLine(headerLineRE.SubexpNames(), sub)
		}
	}
	return h, nil
}

func (h *Header) readLine(names []string, values [][]byte) {
	key := ""
	for i := 1; i < len(names); i++ {
		if values[i] == nil || len(names[i]) != 1 {
			continue
		}
		switch names[i][0] {
		case 'E':
			h.end = true
		case 'H':
			h.History = append(h.History, string(values[i]))
		case 'C':
			h.Comments = append(h.Comments, string(values[i]))
		case 'k':
			key = string(values[i])
		case 'b':
			if len(values[i]) > 0 {
				v := values[i][0]
				h.Bools[key] = v == 't' || v == 'T'
			}
		case 'i':
			if v, err := strconv.ParseInt(string(values[i]), 10, 64); err == nil {
				h.Ints[key] = v
			}
		case 'f':
			if v, err := strconv.ParseFloat(string(values[i]), 64); err == nil {
				h.Floats[key] = v
			}
		case 's':
			h.Strings[key] = string(values[i])
		case 'd':
			h.Dates[key] = string(values[i])
		}
	}
}
