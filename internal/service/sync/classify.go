package sync

import "github.com/rtlmb/member-sync/internal/domain"

// ClassifyMembership derives a member's status from the renewal date.
// Both arguments are ISO calendar dates (YYYY-MM-DD), so a lexicographic
// compare is a correct date compare. A renewal date before today means the
// membership has lapsed.
func ClassifyMembership(renewalDate, today string) domain.MembershipStatus {
	if renewalDate < today {
		return domain.StatusLapsed
	}
	return domain.StatusActive
}

// TagsForStatus maps a membership status to the tag set applied remotely.
func TagsForStatus(status domain.MembershipStatus) []string {
	if status == domain.StatusLapsed {
		return []string{domain.TagLapsedMember}
	}
	return []string{domain.TagMember}
}

// TagsForConsentSource reconstructs tags for resync, where only the consent
// ledger is available. A CSV-import source marks a paying member; anything
// else is a newsletter-only signup. The ledger does not carry renewal dates,
// so a lapsed member resyncs as Member/active. Closing that gap would need
// the renewal date persisted locally.
func TagsForConsentSource(source string) []string {
	if source == domain.ConsentSourceCSVImport {
		return []string{domain.TagMember}
	}
	return []string{domain.TagNewsletterOnly}
}
