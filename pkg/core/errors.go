package core

import "errors"

// ErrSourceMissing is returned when the TOC file does not exist under the
// configured help root.
var ErrSourceMissing = errors.New("toc source file not found")

// ErrSourceMalformed is returned when the TOC parser produced no pages at
// all, indicating the document could not be understood in either dialect.
var ErrSourceMalformed = errors.New("toc source produced no pages")

// ErrNotReady is returned by lookup/browse operations when the indexer has
// not yet completed a parse, or has been closed.
var ErrNotReady = errors.New("indexer not ready")

// ErrNotBrowsable is returned by Browse when the target page exists but is
// not a section, distinct from "not found".
var ErrNotBrowsable = errors.New("page is not browsable")
