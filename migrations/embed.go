package migrations

import "embed"

// FS: схема БД, применяется при старте (все DDL идемпотентны).
//
//go:embed *.sql
var FS embed.FS
