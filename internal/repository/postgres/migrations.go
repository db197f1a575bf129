package postgres

import "embed"

// Migrations holds the schema for the payment attempt log.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations containing the files.
const MigrationsDir = "migrations"
