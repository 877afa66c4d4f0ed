// Package ledger persists the set of artifact identifiers fetched during the
// current campaign. The file is a JSON array of strings and is replaced
// atomically on every save, so a crash leaves either the old or the new set.
package ledger
