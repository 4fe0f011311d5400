package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// MembershipStatus enumerates the states a paying member can be in,
// derived from the renewal date at import time. It is never stored locally.
type MembershipStatus string

const (
	StatusActive MembershipStatus = "active"
	StatusLapsed MembershipStatus = "lapsed"
)

// Tags applied to remote contacts for audience segmentation.
const (
	TagMember         = "Member"
	TagLapsedMember   = "LapsedMember"
	TagNewsletterOnly = "NewsletterOnly"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	dateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// MemberRow is one record from the membership CSV export. Rows live only
// for the duration of a single import run; they are never persisted.
type MemberRow struct {
	FirstName       string `json:"first"`
	LastName        string `json:"last"`
	Email           string `json:"email"`
	MembershipStart string `json:"membership_start"`
	RenewalDate     string `json:"renewal_date"`
}

// Validate checks the row against the import contract. The first failing
// check wins so that error messages stay stable for operators comparing runs.
func (r MemberRow) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" {
		return fmt.Errorf("first name is required")
	}
	if strings.TrimSpace(r.LastName) == "" {
		return fmt.Errorf("last name is required")
	}
	if !emailRegex.MatchString(r.Email) {
		return fmt.Errorf("invalid email address %q", r.Email)
	}
	if !dateRegex.MatchString(r.MembershipStart) {
		return fmt.Errorf("invalid membership_start %q (want YYYY-MM-DD)", r.MembershipStart)
	}
	if !dateRegex.MatchString(r.RenewalDate) {
		return fmt.Errorf("invalid renewal_date %q (want YYYY-MM-DD)", r.RenewalDate)
	}
	return nil
}

// ValidEmail reports whether s parses as an email address under the same
// grammar that row validation applies.
func ValidEmail(s string) bool { return emailRegex.MatchString(s) }
