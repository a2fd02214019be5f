package restx

import _ "embed"

// Version is the release of the restx module.
//
//go:embed VERSION
var Version string
