// Package sheet is the narrow spreadsheet access layer the punch ledger and
// checklist share. It is deliberately not a spreadsheet engine: it reads and
// writes single cells by column letter and row, resolves merged regions to
// their anchor cell, refuses files held by another program, and saves
// atomically so a failed write leaves the store byte-identical.
package sheet
