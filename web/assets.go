// Package web contains the embedded HTML pages of the key management UI.
package web

import "embed"

const (
	IndexPage = "index.html"
	LogPage   = "log.html"
)

// Pages holds the static pages served at / and /log.
//
//go:embed *.html
var Pages embed.FS
