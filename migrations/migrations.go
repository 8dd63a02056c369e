// Package migrations embeds the SQL schema for each supported database.
package migrations

import "embed"

// SqliteMigrations holds the SQLite schema files.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

// PostgresMigrations holds the PostgreSQL schema files.
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS
