package report

import "errors"

// ErrUnknownFormat is returned for a format name outside Formats.
var ErrUnknownFormat = errors.New("report: unknown format")
