package assets

import "embed"

// AssetsFS holds the stylesheet and the small script the dashboard uses to
// talk to the JSON API.
//
//go:embed css js
var AssetsFS embed.FS
