package mailchimp

// Merge field names in the audience schema. These must match the fields
// configured on the remote audience.
const (
	FieldFirstName     = "FNAME"
	FieldLastName      = "LNAME"
	FieldConsentDate   = "CONSENT_DT"
	FieldConsentSource = "CONSENT_SRC"
	FieldConsentIP     = "CONSENT_IP"
	FieldMemberSince   = "MEMBER_SINCE"
	FieldRenewalDate   = "RENEWAL_DT"
	FieldStatus        = "STATUS"
)

// Contact is the remote representation of a person in the audience.
type Contact struct {
	EmailAddress string            `json:"email_address"`
	Status       string            `json:"status"` // subscribed, unsubscribed, cleaned, pending
	MergeFields  map[string]string `json:"merge_fields"`
	Tags         []string          `json:"tags,omitempty"`
}

// tagUpdate is the payload for the member tags endpoint. Tags not present
// keep their current state; listed tags are activated.
type tagUpdate struct {
	Tags []tagEntry `json:"tags"`
}

type tagEntry struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// apiError is the error envelope the remote API returns on failure.
type apiError struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// memberResponse is the subset of the member resource we read back.
type memberResponse struct {
	EmailAddress string            `json:"email_address"`
	Status       string            `json:"status"`
	MergeFields  map[string]string `json:"merge_fields"`
	Tags         []memberTag       `json:"tags"`
}

type memberTag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
