package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamraffle/go-raffle/models"
)

// PutSessionRequest is what the provisioning collaborator posts after the
// OAuth exchange and reward/subscription setup against the platform API.
type PutSessionRequest struct {
	ChannelID      string `json:"channelId" validate:"required"`
	DisplayName    string `json:"displayName" validate:"required"`
	AccessToken    string `json:"accessToken" validate:"required"`
	RefreshToken   string `json:"refreshToken" validate:"required"`
	RewardID       string `json:"rewardId"`
	SubscriptionID string `json:"subscriptionId"`
}

func (s *Server) handlePutSession(w http.ResponseWriter, r *http.Request) {
	req := new(PutSessionRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.sessions.Put(models.TenantSession{
		ChannelID:      req.ChannelID,
		DisplayName:    req.DisplayName,
		AccessToken:    req.AccessToken,
		RefreshToken:   req.RefreshToken,
		RewardID:       req.RewardID,
		SubscriptionID: req.SubscriptionID,
	})
	if len(req.RewardID) > 0 {
		s.campaigns.Provision(req.ChannelID, req.RewardID)
	}
	session, _ := s.sessions.Get(req.ChannelID)
	s.logger.Infof("admin: provisioned session for channel %s", req.ChannelID)
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, found := s.sessions.Get(chi.URLParam(r, "channelID"))
	if !found {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	if !s.sessions.Delete(channelID) {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return
	}
	s.logger.Infof("admin: deleted session for channel %s", channelID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartCampaign(w http.ResponseWriter, r *http.Request) {
	s.setCampaignActive(w, r, true)
}

func (s *Server) handleStopCampaign(w http.ResponseWriter, r *http.Request) {
	s.setCampaignActive(w, r, false)
}

func (s *Server) setCampaignActive(w http.ResponseWriter, r *http.Request, active bool) {
	channelID := chi.URLParam(r, "channelID")
	found := false
	if active {
		found = s.campaigns.Start(channelID)
	} else {
		found = s.campaigns.Stop(channelID)
	}
	if !found {
		http.Error(w, "no campaign provisioned", http.StatusNotFound)
		return
	}
	campaign, _ := s.campaigns.Get(channelID)
	s.logger.Infof("admin: campaign for channel %s active=%v", channelID, active)
	writeJSON(w, http.StatusOK, campaign)
}

func (s *Server) handleClearCampaign(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	if !s.campaigns.Clear(channelID) {
		http.Error(w, "no campaign provisioned", http.StatusNotFound)
		return
	}
	s.logger.Infof("admin: cleared entries for channel %s", channelID)
	campaign, _ := s.campaigns.Get(channelID)
	writeJSON(w, http.StatusOK, campaign)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, found := s.campaigns.Stats(chi.URLParam(r, "channelID"))
	if !found {
		http.Error(w, "no campaign provisioned", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
