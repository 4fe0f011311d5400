package domain

import "time"

// Consent sources recognized by the resync path. Anything else is treated
// as a newsletter-only signup.
const (
	ConsentSourceCSVImport  = "canadahelps-csv-import"
	ConsentSourceNewsletter = "rtlmb.org/newsletter"
)

// ConsentLogEntry is one append-only record of a person granting newsletter
// consent. Entries are immutable once written; an email address may have
// many entries and the most recent one wins for resync.
type ConsentLogEntry struct {
	ID            string    `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"` // always lowercased
	FirstName     string    `json:"first_name,omitempty" db:"first_name"`
	LastName      string    `json:"last_name,omitempty" db:"last_name"`
	ConsentAt     time.Time `json:"consent_at" db:"consent_at"`
	ConsentSource string    `json:"consent_source" db:"consent_source"`
	ConsentIP     string    `json:"consent_ip" db:"consent_ip"`
	UserAgent     string    `json:"user_agent,omitempty" db:"user_agent"`
	PolicyVersion string    `json:"policy_version" db:"policy_version"`
}
