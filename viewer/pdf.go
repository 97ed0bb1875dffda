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

package viewer

import (
	"context"

	"seehuhn.de/go/pdfview/engine"
)

// PDFOpener returns an [Opener] which reads PDF files from disk.
// The password passed to OpenDocument overrides opt.Password when it is
// not empty.
func PDFOpener(opt engine.Options) Opener {
	return OpenerFunc(func(ctx context.Context, source, password string) (Document, error) {
		o := opt
		if password != "" {
			o.Password = password
		}
		doc, err := engine.Open(ctx, source, &o)
		if err != nil {
			return nil, err
		}
		return doc, nil
	})
}
