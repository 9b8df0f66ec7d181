// Package schemas provides embedded SQL migration files.
package schemas

import "embed"

// Migrations contains the SQL migration files for the image cache tables.
//
//go:embed migrations/*.sql
var Migrations embed.FS
