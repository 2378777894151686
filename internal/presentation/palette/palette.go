// Package palette maps processing-module types to the colors and glyphs
// used when rendering nodes on a terminal.
package palette

import (
	"github.com/muesli/termenv"
)

// Entry is the visual identity of one module type.
type Entry struct {
	// Color is a hex color for the node body.
	Color string
	// Icon is a single-rune glyph shown in the node header.
	Icon string
}

// byType holds the known module families. Unknown types fall back to
// Default so new server-side modules render without a client update.
var byType = map[string]Entry{
	"excel_import": {Color: "#22c55e", Icon: "⇲"},
	"csv_export":   {Color: "#38bdf8", Icon: "⇱"},
	"statistics":   {Color: "#a78bfa", Icon: "Σ"},
	"filter":       {Color: "#fbbf24", Icon: "∇"},
	"file_convert": {Color: "#f472b6", Icon: "⇄"},
}

// Default is the fallback identity for module types without an entry.
var Default = Entry{Color: "#94a3b8", Icon: "▢"}

// Lookup returns the entry for a module type, falling back to Default.
func Lookup(moduleType string) Entry {
	if e, ok := byType[moduleType]; ok {
		return e
	}
	return Default
}

// Label renders a colored "icon name" label for a module type using the
// terminal's color profile.
func Label(moduleType, name string) string {
	e := Lookup(moduleType)
	p := termenv.ColorProfile()
	return termenv.String(e.Icon + " " + name).Foreground(p.Color(e.Color)).String()
}
