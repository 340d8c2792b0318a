package database

const (
	// Entries past their archival deadline read as absent even before
	// the next prune run removes them.
	queryHasEntry = `
		SELECT 1
		FROM entries
		WHERE class = ? AND k = ?
		  AND (live_until IS NULL OR live_until >= CAST(strftime('%s', 'now') AS INTEGER))`

	queryGetEntry = `
		SELECT v
		FROM entries
		WHERE class = ? AND k = ?
		  AND (live_until IS NULL OR live_until >= CAST(strftime('%s', 'now') AS INTEGER))`

	// Set replaces the previous entry outright: the archival deadline is
	// cleared too, so an expired slot that gets rewritten reads as live
	// again until the next ExtendTTL enrolls it.
	queryUpsertEntry = `
		INSERT INTO entries (class, k, v) VALUES (?, ?, ?)
		ON CONFLICT (class, k)
		DO UPDATE SET v = excluded.v, live_until = NULL, updated_at = CURRENT_TIMESTAMP`

	// Never shortens a lifetime: the new deadline only wins when later
	// than whatever protection the entry already has.
	queryExtendTTL = `
		UPDATE entries
		SET live_until = ?, updated_at = CURRENT_TIMESTAMP
		WHERE class = ? AND k = ?
		  AND (live_until IS NULL OR live_until < ?)`

	queryPruneExpired = `
		DELETE FROM entries
		WHERE live_until IS NOT NULL AND live_until < ?`
)
