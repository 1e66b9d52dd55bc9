// Package scim holds assets shared by the service binaries, such as the
// embedded SQL migrations applied by the migrate command.
package scim

import "embed"

// Migrations contains the goose migration files for the users schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS
