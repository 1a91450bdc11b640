package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/blindvote/blindvote/internal/server/models"
)

type optionView struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type electionView struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	StartDate   time.Time    `json:"start_date"`
	EndDate     time.Time    `json:"end_date"`
	IsActive    bool         `json:"is_active"`
	State       string       `json:"state"`
	Options     []optionView `json:"options"`
}

func (s *Server) electionView(e *models.Election) electionView {
	v := electionView{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		IsActive:    e.IsActive,
		State:       string(s.elections.State(e)),
		Options:     make([]optionView, 0, len(e.Options)),
	}
	for _, o := range e.Options {
		v.Options = append(v.Options, optionView{ID: o.ID, Text: o.OptionText, Order: o.OptionOrder})
	}
	return v
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.ErrorValidation
	}
	return id, nil
}

func (s *Server) handleListActiveElections(w http.ResponseWriter, r *http.Request) {
	list, err := s.elections.ListActive(r.Context())
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

func (s *Server) handleGetElection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	e, err := s.elections.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.electionView(e))
}

func (s *Server) handleElectionPublicKey(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	publicPEM, err := s.elections.PublicKey(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"public_key_pem": publicPEM})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, result)
}
