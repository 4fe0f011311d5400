package sync

import "errors"

// Sentinel errors for the sync service layer.
var (
	// ErrNoConsent means resync found no consent ledger entry for the email.
	ErrNoConsent = errors.New("no consent record found for this email")

	// ErrEmptyFile means the CSV contained no data rows after the header.
	ErrEmptyFile = errors.New("csv file contains no data rows")

	// ErrRunNotFound means no import run exists for the requested id.
	ErrRunNotFound = errors.New("import run not found")
)
