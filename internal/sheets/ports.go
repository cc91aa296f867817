// Package sheets defines the outbound port for mirroring the ledger export
// to a spreadsheet.
package sheets

import "context"

// Ports for outbound adapters.
type (
	// TableWriter replaces the contents of a sheet with rows. The first row
	// is the header.
	TableWriter interface {
		WriteTable(ctx context.Context, rows [][]string) error
	}
)
