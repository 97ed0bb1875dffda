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

// Package library lists the PDF files available in a directory.
package library

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entry is a document in the library.
type Entry struct {
	// ID identifies the entry within its library.  It is the file name
	// without the extension.
	ID string `json:"id"`

	// Title is a display name derived from the file name.
	Title string `json:"title"`

	Path     string    `json:"-"`
	Modified time.Time `json:"modified"`
}

// Scan lists the PDF files in dir, newest first.  Subdirectories and other
// files are ignored.
func Scan(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	caser := cases.Title(language.English)
	seen := make(map[string]bool)
	var res []Entry
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		ext := filepath.Ext(name)
		if !strings.EqualFold(ext, ".pdf") {
			continue
		}
		id := strings.TrimSuffix(name, ext)
		if id == "" || seen[id] {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// removed since ReadDir
			continue
		}
		seen[id] = true

		res = append(res, Entry{
			ID:       id,
			Title:    titleFromName(caser, id),
			Path:     filepath.Join(dir, name),
			Modified: info.ModTime(),
		})
	}

	sort.SliceStable(res, func(i, j int) bool {
		if !res[i].Modified.Equal(res[j].Modified) {
			return res[i].Modified.After(res[j].Modified)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func titleFromName(caser cases.Caser, id string) string {
	s := strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, id)
	return caser.String(strings.Join(strings.Fields(s), " "))
}

// Lookup returns the entry with the given ID.
func Lookup(entries []Entry, id string) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
