// Package migrations bundles the versioned schema files applied at startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
