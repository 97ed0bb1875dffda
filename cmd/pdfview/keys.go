// seehuhn.de/go/pdfview - a paginated viewer for PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
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
	"bufio"
	"io"

	"seehuhn.de/go/pdfview/gesture"
)

// keyQuit is returned by readKey for the keys which end the program.
const keyQuit gesture.Key = "quit"

// readKey reads one key press from a terminal in raw mode.  Arrow keys
// arrive as the escape sequences ESC [ C and ESC [ D.  Unknown escape
// sequences are returned as the empty key.
func readKey(r *bufio.Reader) (gesture.Key, error) {
	b, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	switch b {
	case 'q', 'Q', 3: // 3 is ctrl-c in raw mode
		return keyQuit, nil
	case ' ', 'n':
		return gesture.ArrowRight, nil
	case 'p':
		return gesture.ArrowLeft, nil
	case 0x1b:
	default:
		return gesture.Key(string(rune(b))), nil
	}

	if r.Buffered() == 0 {
		// a lone escape
		return keyQuit, nil
	}
	b, err = r.ReadByte()
	if err != nil || b != '[' {
		return "", err
	}
	b, err = r.ReadByte()
	if err == io.EOF {
		return "", nil
	} else if err != nil {
		return "", err
	}
	switch b {
	case 'C':
		return gesture.ArrowRight, nil
	case 'D':
		return gesture.ArrowLeft, nil
	}
	return "", nil
}
