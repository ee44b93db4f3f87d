package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter writes indented JSON. HTML characters are not escaped, so
// tokens and URLs print as stored.
type JSONFormatter struct {
	// Compact disables indentation.
	Compact bool
}

// Format writes data as one JSON document followed by a newline.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if !f.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}
