// Package migrations carries the schema migration scripts for the
// document store, compiled into the binary so a fresh database can be
// created anywhere the CLI runs.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
