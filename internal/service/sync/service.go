package sync

import (
	"context"
	"strings"
	"time"

	"github.com/rtlmb/member-sync/internal/domain"
	"github.com/rtlmb/member-sync/internal/pkg/logger"
)

// Options tunes a Service. Zero values get sensible defaults.
type Options struct {
	// Workers bounds concurrent row processing during an import.
	// 1 (the default) processes rows sequentially in file order.
	Workers int

	// PolicyVersion is stamped on new consent ledger entries.
	PolicyVersion string

	// Now supplies the current time. Injectable so that "today" is
	// deterministic in tests. Defaults to time.Now.
	Now func() time.Time
}

// Service implements the synchronization core. It is safe for concurrent use.
type Service struct {
	runs     RunStore
	consents ConsentStore
	contacts ContactStore

	workers       int
	policyVersion string
	now           func() time.Time
}

// NewService creates a sync service with explicit, injected dependencies.
func NewService(runs RunStore, consents ConsentStore, contacts ContactStore, opts Options) *Service {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.PolicyVersion == "" {
		opts.PolicyVersion = "1.0"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		runs:          runs,
		consents:      consents,
		contacts:      contacts,
		workers:       opts.Workers,
		policyVersion: opts.PolicyVersion,
		now:           opts.Now,
	}
}

// ImportResult is the caller-facing summary of one import run.
type ImportResult struct {
	RunID   string                  `json:"run_id"`
	DryRun  bool                    `json:"dry_run"`
	Created int                     `json:"created"`
	Updated int                     `json:"updated"`
	Errors  []domain.ImportRowError `json:"errors"`
}

// Import executes one batch import run over raw CSV bytes.
//
// The audit record is created (status running) before any row is processed
// and finalized exactly once after every row's outcome is known; readers
// only ever observe pre-run or post-run state. Row failures are isolated:
// they land in the error list and the run continues. In dry-run mode no
// remote call is made and every syntactically valid row counts as created,
// since create-vs-update cannot be known without a remote lookup.
//
// created + updated + len(errors) == TotalRows at completion.
func (s *Service) Import(ctx context.Context, fileName string, csvData []byte, dryRun bool) (*ImportResult, error) {
	rows := ParseMemberCSV(string(csvData))
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	run := &domain.ImportRun{
		FileName:  fileName,
		TotalRows: len(rows),
		Status:    domain.RunRunning,
		StartedAt: s.now().UTC(),
	}
	runID, err := s.runs.Create(ctx, run)
	if err != nil {
		return nil, err
	}
	run.ID = runID

	logger.Info("import run started",
		"run_id", runID, "file", fileName, "rows", run.TotalRows, "dry_run", dryRun)

	agg := newAggregator()
	today := s.now().UTC().Format("2006-01-02")

	if s.workers == 1 {
		for _, row := range rows {
			s.processRow(ctx, row, today, dryRun, agg)
		}
	} else {
		s.processParallel(ctx, rows, today, dryRun, agg)
	}

	created, updated, rowErrs := agg.snapshot()
	run.CreatedRows = created
	run.UpdatedRows = updated
	run.ErrorRows = len(rowErrs)
	run.Errors = rowErrs
	run.Status = domain.RunCompleted
	completedAt := s.now().UTC()
	run.CompletedAt = &completedAt

	if err := s.runs.Finalize(ctx, run); err != nil {
		return nil, err
	}

	logger.Info("import run completed",
		"run_id", runID, "created", created, "updated", updated, "errors", len(rowErrs))

	return &ImportResult{
		RunID:   runID,
		DryRun:  dryRun,
		Created: created,
		Updated: updated,
		Errors:  rowErrs,
	}, nil
}

// processRow handles a single row end to end and records its outcome.
func (s *Service) processRow(ctx context.Context, row parsedRow, today string, dryRun bool, agg *aggregator) {
	if row.Err != nil {
		agg.addError(*row.Err)
		return
	}

	member := row.Member
	if dryRun {
		// Validation-only path: no remote calls, valid row counts as created.
		agg.addCreated()
		return
	}

	status := ClassifyMembership(member.RenewalDate, today)
	tags := TagsForStatus(status)
	email := strings.ToLower(member.Email)

	// Existence check only classifies the outcome for the run summary;
	// the upsert itself does not need it.
	existing, err := s.contacts.GetContact(ctx, email)
	if err != nil {
		agg.addError(domain.ImportRowError{Row: row.Number, Email: member.Email, Error: err.Error()})
		return
	}

	data := ContactData{
		Email:         email,
		FirstName:     member.FirstName,
		LastName:      member.LastName,
		ConsentAt:     s.now().UTC().Format(time.RFC3339),
		ConsentSource: domain.ConsentSourceCSVImport,
		ConsentIP:     "127.0.0.1", // admin-initiated import
		MemberSince:   member.MembershipStart,
		RenewalDate:   member.RenewalDate,
		Status:        status,
	}
	if err := s.Upsert(ctx, data, tags); err != nil {
		agg.addError(domain.ImportRowError{Row: row.Number, Email: member.Email, Error: err.Error()})
		return
	}

	if existing != nil {
		agg.addUpdated()
	} else {
		agg.addCreated()
	}
}

// processParallel fans rows out to a bounded worker pool. Each row carries
// its own row number, so the error list stays correct even though entries
// may not appear in file order.
func (s *Service) processParallel(ctx context.Context, rows []parsedRow, today string, dryRun bool, agg *aggregator) {
	work := make(chan parsedRow)
	done := make(chan struct{})

	for i := 0; i < s.workers; i++ {
		go func() {
			for row := range work {
				s.processRow(ctx, row, today, dryRun, agg)
			}
			done <- struct{}{}
		}()
	}

	for _, row := range rows {
		work <- row
	}
	close(work)
	for i := 0; i < s.workers; i++ {
		<-done
	}
}

// ResyncResult is the confirmation payload for a single-contact repair.
type ResyncResult struct {
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	ConsentAt     time.Time `json:"consent_at"`
	ConsentSource string    `json:"consent_source"`
	Tags          []string  `json:"tags"`
}

// Resync repairs a single remote contact from the consent ledger. It looks
// up the most recent consent entry for the lowercased email, reconstructs
// the tag set from the consent source, and reuses the import upsert path.
// It is a point-fix tool: no audit record is written.
//
// Returns ErrNoConsent (with no remote mutation) when the ledger has no
// entry for the email.
func (s *Service) Resync(ctx context.Context, email string) (*ResyncResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	entry, err := s.consents.FindLatest(ctx, email)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNoConsent
	}

	tags := TagsForConsentSource(entry.ConsentSource)

	data := ContactData{
		Email:         entry.Email,
		FirstName:     entry.FirstName,
		LastName:      entry.LastName,
		ConsentAt:     entry.ConsentAt.UTC().Format(time.RFC3339),
		ConsentSource: entry.ConsentSource,
		ConsentIP:     entry.ConsentIP,
		Status:        domain.StatusActive,
	}
	if err := s.Upsert(ctx, data, tags); err != nil {
		return nil, err
	}

	logger.Info("contact resynced", "email", entry.Email, "source", entry.ConsentSource)

	return &ResyncResult{
		Email:         entry.Email,
		FirstName:     entry.FirstName,
		LastName:      entry.LastName,
		ConsentAt:     entry.ConsentAt,
		ConsentSource: entry.ConsentSource,
		Tags:          tags,
	}, nil
}

// SubscribeRequest carries a newsletter signup into the sync core.
type SubscribeRequest struct {
	Email         string
	FirstName     string
	LastName      string
	ConsentIP     string
	ConsentSource string
	UserAgent     string
}

// Subscribe records a consent event in the ledger and upserts the contact
// with the NewsletterOnly tag. The ledger write happens first: consent is
// the local source of truth, and a failed remote upsert can be repaired
// later with Resync.
func (s *Service) Subscribe(ctx context.Context, req SubscribeRequest) error {
	source := req.ConsentSource
	if source == "" {
		source = domain.ConsentSourceNewsletter
	}
	consentAt := s.now().UTC()

	entry := &domain.ConsentLogEntry{
		Email:         strings.ToLower(req.Email),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ConsentAt:     consentAt,
		ConsentSource: source,
		ConsentIP:     req.ConsentIP,
		UserAgent:     req.UserAgent,
		PolicyVersion: s.policyVersion,
	}
	if err := s.consents.Append(ctx, entry); err != nil {
		return err
	}

	data := ContactData{
		Email:         entry.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ConsentAt:     consentAt.Format(time.RFC3339),
		ConsentSource: source,
		ConsentIP:     req.ConsentIP,
		Status:        domain.StatusActive,
	}
	return s.Upsert(ctx, data, []string{domain.TagNewsletterOnly})
}

// GetRun returns one import audit record.
func (s *Service) GetRun(ctx context.Context, id string) (*domain.ImportRun, error) {
	return s.runs.Get(ctx, id)
}
