package sync

import (
	"context"

	"github.com/rtlmb/member-sync/internal/mailchimp"
)

// ContactStore is the remote contact store surface the sync core needs.
// *mailchimp.Client satisfies it; tests use in-memory fakes.
type ContactStore interface {
	// GetContact returns the contact for an email, or (nil, nil) when the
	// store has no member for it.
	GetContact(ctx context.Context, email string) (*mailchimp.Contact, error)

	// UpdateContact overwrites the member addressed by the email's hash.
	// Returns mailchimp.ErrNotFound when no such member exists.
	UpdateContact(ctx context.Context, contact mailchimp.Contact) error

	// CreateContact adds a new member.
	CreateContact(ctx context.Context, contact mailchimp.Contact) error

	// UpdateTags activates the given tags on a member.
	UpdateTags(ctx context.Context, email string, tags []string) error
}
