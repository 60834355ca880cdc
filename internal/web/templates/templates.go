// Package templates embeds the portal's HTML templates.
package templates

import "embed"

//go:embed *.html pages/*.html partials/*.html
var FS embed.FS
