// Package ledger maintains the append-only punch log inside a cabinet's
// workbook. Serials form a gap-free increasing sequence allocated from the
// previous row under single-writer access; the row scan is capped so a
// corrupted sheet stops the operation instead of wrapping around.
package ledger
