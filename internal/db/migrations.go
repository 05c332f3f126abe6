package db

import "embed"

// Migrations holds the goose migrations for the metadata store.
//
//go:embed migrations/*.sql
var Migrations embed.FS
