// Package migrations embeds the postgres schema for sqlstore, applied via
// golang-migrate rather than GORM's AutoMigrate (which remains the sqlite
// path's migration strategy, grounded on the teacher's
// pkg/store/metadata/postgres/migrate.go).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
