// Package export writes the access logs of one time window to a file.
package export

import (
	"strings"

	"zenexport/internal/domain"
)

// Format selects the serialization of an export file.
type Format string

// Supported formats.
const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"
)

// Formats lists every supported format.
var Formats = []Format{FormatCSV, FormatJSON, FormatSQLite}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatCSV, FormatJSON, FormatSQLite:
		return f, nil
	default:
		return "", domain.ErrValidation("unsupported format %q: use csv, json or sqlite", s)
	}
}

// Extension is the file name extension, without the dot.
func (f Format) Extension() string { return string(f) }

// ContentType is the media type used when mirroring the file.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatSQLite:
		return "application/vnd.sqlite3"
	default:
		return "application/octet-stream"
	}
}

// FileName returns access_logs_{start}-to-{end}.{ext} for w.
func FileName(w domain.TimeWindow, f Format) string {
	return "access_logs_" + w.StartString() + "-to-" + w.EndString() + "." + f.Extension()
}
