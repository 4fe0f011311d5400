package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rtlmb/member-sync/internal/config"
	"github.com/rtlmb/member-sync/internal/domain"
	"github.com/rtlmb/member-sync/internal/pkg/logger"
	syncsvc "github.com/rtlmb/member-sync/internal/service/sync"
)

// SyncService is the surface of the synchronization core the handlers use.
// *sync.Service satisfies it; tests substitute fakes.
type SyncService interface {
	Import(ctx context.Context, fileName string, csvData []byte, dryRun bool) (*syncsvc.ImportResult, error)
	Resync(ctx context.Context, email string) (*syncsvc.ResyncResult, error)
	Subscribe(ctx context.Context, req syncsvc.SubscribeRequest) error
	GetRun(ctx context.Context, id string) (*domain.ImportRun, error)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	svc SyncService
	cfg config.Config
}

// NewHandlers creates the handler set.
func NewHandlers(svc SyncService, cfg config.Config) *Handlers {
	return &Handlers{svc: svc, cfg: cfg}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---- newsletter subscribe ----

type subscribeRequest struct {
	Email         string `json:"email"`
	FirstName     string `json:"fname"`
	LastName      string `json:"lname"`
	ConsentIP     string `json:"consent_ip"`
	ConsentSource string `json:"consent_src"`
}

// Subscribe handles a public newsletter signup: it appends a consent ledger
// entry and upserts the contact with the NewsletterOnly tag.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if net.ParseIP(req.ConsentIP) == nil {
		writeError(w, http.StatusBadRequest, "Invalid IP address")
		return
	}

	err := h.svc.Subscribe(r.Context(), syncsvc.SubscribeRequest{
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ConsentIP:     req.ConsentIP,
		ConsentSource: req.ConsentSource,
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		logger.Error("newsletter subscribe failed", "email", req.Email, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to subscribe. Please try again later.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Successfully subscribed to newsletter!",
	})
}

// SubscribeUsage documents the subscribe endpoint.
func (h *Handlers) SubscribeUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Newsletter subscription endpoint",
		"method":          "POST",
		"required_fields": []string{"email", "consent_ip"},
		"optional_fields": []string{"fname", "lname", "consent_src"},
	})
}

// ---- admin: batch import ----

// ImportMembers runs a batch CSV import. The upload arrives as multipart
// form data under the "csv" field; "dryRun=true" validates without touching
// the remote store.
func (h *Handlers) ImportMembers(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.cfg.Import.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("csv")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No CSV file provided")
		return
	}
	defer file.Close()

	csvData, err := io.ReadAll(io.LimitReader(file, h.cfg.Import.MaxUploadSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	dryRun := r.FormValue("dryRun") == "true"

	result, err := h.svc.Import(r.Context(), header.Filename, csvData, dryRun)
	if err != nil {
		if errors.Is(err, syncsvc.ErrEmptyFile) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("import run failed", "file", header.Filename, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"dry_run": result.DryRun,
		"run_id":  result.RunID,
		"result": map[string]interface{}{
			"created": result.Created,
			"updated": result.Updated,
			"errors":  result.Errors,
		},
	})
}

// ImportMembersUsage documents the import endpoint.
func (h *Handlers) ImportMembersUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":          "CSV member import endpoint",
		"method":           "POST",
		"required_headers": []string{"Authorization: Bearer <admin_secret>"},
		"required_fields":  []string{"csv (file)", "dryRun (boolean)"},
		"csv_format": map[string]interface{}{
			"columns": []string{"first", "last", "email", "membership_start", "renewal_date"},
			"example": "John,Doe,john@example.com,2023-01-01,2024-01-01",
		},
	})
}

// GetImportRun returns one import audit record.
func (h *Handlers) GetImportRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, syncsvc.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "import run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ---- admin: resync ----

type resyncRequest struct {
	Email string `json:"email"`
}

// ResyncContact repairs a single remote contact from the consent ledger.
func (h *Handlers) ResyncContact(w http.ResponseWriter, r *http.Request) {
	var req resyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	result, err := h.svc.Resync(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, syncsvc.ErrNoConsent) {
			writeError(w, http.StatusNotFound, "No consent log found for this email")
			return
		}
		logger.Error("contact resync failed", "email", req.Email, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to resync contact")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Contact resynced successfully",
		"contact": result,
	})
}

// ResyncContactUsage documents the resync endpoint.
func (h *Handlers) ResyncContactUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":          "Contact resync endpoint",
		"method":           "POST",
		"required_headers": []string{"Authorization: Bearer <admin_secret>"},
		"required_fields":  []string{"email"},
	})
}
