package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/blindvote/blindvote/internal/common"
)

type registerRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type voterView struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	DisplayName  string `json:"display_name"`
	HasPublicKey bool   `json:"has_public_key"`
	IsAdmin      bool   `json:"is_admin"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, common.ErrorValidation)
		return
	}

	voter, err := s.voters.Register(r.Context(), req.Username, req.DisplayName, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, voterView{
		ID:          voter.ID,
		Username:    voter.Username,
		DisplayName: voter.DisplayName,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorValidation)
		return
	}

	token, err := s.voters.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token})
}

type registerKeyRequest struct {
	PublicKeyPEM string `json:"public_key_pem"`
}

func (s *Server) handleRegisterPublicKey(w http.ResponseWriter, r *http.Request) {
	var req registerKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PublicKeyPEM == "" {
		writeError(w, common.ErrorValidation)
		return
	}

	claims := claimsFrom(r.Context())
	if err := s.voters.RegisterPublicKey(r.Context(), claims.VoterID, req.PublicKeyPEM); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"registered": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	voter, err := s.voters.GetVoter(r.Context(), claims.VoterID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, voterView{
		ID:           voter.ID,
		Username:     voter.Username,
		DisplayName:  voter.DisplayName,
		HasPublicKey: voter.HasPublicKey(),
		IsAdmin:      voter.IsAdmin,
	})
}
