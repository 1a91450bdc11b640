package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/blindvote/blindvote/internal/common"
)

type createElectionRequest struct {
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Options     []string  `json:"options"`
}

func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	var req createElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorValidation)
		return
	}

	e, err := s.elections.Create(r.Context(), req.Title, req.Description, req.StartDate, req.EndDate, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, s.electionView(e))
}

func (s *Server) handleListAllElections(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := s.elections.ListAll(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]electionView, 0, len(list))
	for _, e := range list {
		views = append(views, s.electionView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorValidation)
		return
	}

	if err := s.elections.SetActive(r.Context(), id, req.Active); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

type regenerateKeyResponse struct {
	PublicKeyPEM string `json:"public_key_pem"`
	Warning      string `json:"warning"`
}

func (s *Server) handleRegenerateKey(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	publicPEM, warning, err := s.elections.RegenerateKey(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, regenerateKeyResponse{PublicKeyPEM: publicPEM, Warning: warning})
}

type auditResponse struct {
	Tokens  []auditTokenView `json:"tokens"`
	Summary map[string]int   `json:"summary"`
}

type auditTokenView struct {
	ID         int64      `json:"id"`
	VoterID    int64      `json:"voter_id"`
	ElectionID int64      `json:"election_id"`
	IsSigned   bool       `json:"is_signed"`
	IsUsed     bool       `json:"is_used"`
	CreatedAt  time.Time  `json:"created_at"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
}

func (s *Server) handleAuditTokens(w http.ResponseWriter, r *http.Request) {
	var electionID *int64
	if raw := r.URL.Query().Get("election_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, common.ErrorValidation)
			return
		}
		electionID = &id
	}

	tokens, summary, err := s.tokens.Audit(r.Context(), electionID)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]auditTokenView, 0, len(tokens))
	for _, t := range tokens {
		views = append(views, auditTokenView{
			ID:         t.ID,
			VoterID:    t.VoterID,
			ElectionID: t.ElectionID,
			IsSigned:   t.IsSigned(),
			IsUsed:     t.IsUsed,
			CreatedAt:  t.CreatedAt,
			UsedAt:     t.UsedAt,
		})
	}

	writeJSON(w, http.StatusOK, auditResponse{
		Tokens: views,
		Summary: map[string]int{
			"total":              summary.Total,
			"signed":             summary.Signed,
			"used":               summary.Used,
			"unsigned_anomalous": summary.UnsignedAnomalous,
		},
	})
}

type archiveResponse struct {
	TallyKey string `json:"tally_key"`
	AuditKey string `json:"audit_key"`
}

// handleArchive snapshots the election's tally and token audit to object
// storage.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.results.Results(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	_, summary, err := s.tokens.Audit(r.Context(), &id)
	if err != nil {
		writeError(w, err)
		return
	}

	tallyKey, err := s.archive.ExportTally(r.Context(), id, result)
	if err != nil {
		s.log.Error(r.Context(), "tally export failed", "election_id", id, "error", err)
		writeError(w, common.ErrorInternal)
		return
	}

	auditKey, err := s.archive.ExportAudit(r.Context(), id, summary)
	if err != nil {
		s.log.Error(r.Context(), "audit export failed", "election_id", id, "error", err)
		writeError(w, common.ErrorInternal)
		return
	}

	writeJSON(w, http.StatusOK, archiveResponse{TallyKey: tallyKey, AuditKey: auditKey})
}
