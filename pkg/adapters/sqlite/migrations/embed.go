package migrations

import "embed"

// FS contains the embedded ledger migrations.
//
//go:embed *.sql
var FS embed.FS
