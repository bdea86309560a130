// Package web holds static assets served by the API.
package web

import _ "embed"

// ProbeJS is the in-page tracking probe.
//
//go:embed analytics.js
var ProbeJS []byte
