// Package db carries the SQL schema files embedded into the binary and
// applied at startup.
package db

import "embed"

// Migrations holds the schema files under migrations/, applied in
// lexical order. Every statement is written to be safe to reapply.
//
//go:embed migrations/*.sql
var Migrations embed.FS
