// Package sync implements the member synchronization core.
//
// Two workflows share one upsert path: batch CSV import (parse, classify,
// upsert, audit) and single-contact resync (consent ledger lookup, tag
// reconstruction, upsert). Row failures are isolated: a bad row becomes one
// ImportRowError and the run continues.
//
// The service layer contains pure business logic and depends on the
// RunStore, ConsentStore and ContactStore interfaces defined alongside it.
// It never imports net/http or database/sql directly.
package sync
