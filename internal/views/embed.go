package views

import "embed"

// FS holds the HTML templates rendered by the fiber view engine.
//
//go:embed *.html
var FS embed.FS
