package sync

import (
	"context"
	"errors"
	"strings"

	"github.com/rtlmb/member-sync/internal/domain"
	"github.com/rtlmb/member-sync/internal/mailchimp"
	"github.com/rtlmb/member-sync/internal/pkg/logger"
)

// ContactData is the full merge-field payload for one remote contact.
type ContactData struct {
	Email         string
	FirstName     string
	LastName      string
	ConsentAt     string // RFC3339
	ConsentSource string
	ConsentIP     string
	MemberSince   string // YYYY-MM-DD, empty for newsletter signups
	RenewalDate   string // YYYY-MM-DD, empty for newsletter signups
	Status        domain.MembershipStatus
}

func (d ContactData) remoteContact() mailchimp.Contact {
	status := d.Status
	if status == "" {
		status = domain.StatusActive
	}
	return mailchimp.Contact{
		EmailAddress: strings.ToLower(d.Email),
		Status:       "subscribed",
		MergeFields: map[string]string{
			mailchimp.FieldFirstName:     d.FirstName,
			mailchimp.FieldLastName:      d.LastName,
			mailchimp.FieldConsentDate:   d.ConsentAt,
			mailchimp.FieldConsentSource: d.ConsentSource,
			mailchimp.FieldConsentIP:     d.ConsentIP,
			mailchimp.FieldMemberSince:   d.MemberSince,
			mailchimp.FieldRenewalDate:   d.RenewalDate,
			mailchimp.FieldStatus:        string(status),
		},
	}
}

// Upsert writes a contact to the remote store. It is idempotent with respect
// to the lowercased email: update first, fall back to create when the store
// reports the member missing. Exactly one attempt per call; retries are an
// operator resync, never automatic.
//
// Tag replacement runs after a successful write and is best-effort: the
// contact record is the hard invariant, tag freshness is soft. A tag failure
// is logged and swallowed.
func (s *Service) Upsert(ctx context.Context, data ContactData, tags []string) error {
	contact := data.remoteContact()

	err := s.contacts.UpdateContact(ctx, contact)
	if errors.Is(err, mailchimp.ErrNotFound) {
		err = s.contacts.CreateContact(ctx, contact)
	}
	if err != nil {
		return err
	}

	if tagErr := s.contacts.UpdateTags(ctx, contact.EmailAddress, tags); tagErr != nil {
		logger.Warn("tag sync failed, contact record is current",
			"email", contact.EmailAddress, "error", tagErr.Error())
	}
	return nil
}
