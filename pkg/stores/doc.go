// Package stores provides the SQLite reconciliation journal: the runs of
// mutating commands and every object they created, updated, overwrote or
// imported. The schema is applied with embedded golang-migrate migrations.
package stores
