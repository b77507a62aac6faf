// Package embedded provides embedded static assets for the application.
package embedded

import (
	"embed"
)

// Files contains all files embedded in the Go binary:
//   - domains/*.yaml - default domain configurations (weights, thresholds, rules)
//   - schemas/*.sql - database schemas applied by database.Migrate
//
//go:embed domains schemas
var Files embed.FS

// DomainsDir is the directory of domain configurations inside Files
const DomainsDir = "domains"

// SchemasDir is the directory of SQL schemas inside Files
const SchemasDir = "schemas"
