// Package migrations bundles the SQL files applied by "radpa migrate".
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
