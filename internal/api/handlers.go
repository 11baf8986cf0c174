package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/justkalesh/foodhunt101-sub000/internal/middleware"
	"github.com/justkalesh/foodhunt101-sub000/internal/models"
	"github.com/justkalesh/foodhunt101-sub000/internal/service"
)

type createSplitRequest struct {
	VendorID     string    `json:"vendor_id"`
	VendorName   string    `json:"vendor_name"`
	DishName     string    `json:"dish_name"`
	TotalPrice   float64   `json:"total_price"`
	PeopleNeeded int       `json:"people_needed"`
	TimeNote     string    `json:"time_note"`
	SplitTime    time.Time `json:"split_time"`
}

func (s *Server) handleCreateSplit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var err error
	defer func() { observe("create", start, err) }()

	var body createSplitRequest
	if err = decodeJSON(r, &body); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	split, err := s.svc.Create(r.Context(), service.CreateParams{
		CreatorID:    middleware.GetUserID(r.Context()),
		CreatorName:  middleware.GetDisplayName(r.Context()),
		VendorID:     body.VendorID,
		VendorName:   body.VendorName,
		DishName:     body.DishName,
		TotalPrice:   body.TotalPrice,
		PeopleNeeded: body.PeopleNeeded,
		TimeNote:     body.TimeNote,
		SplitTime:    body.SplitTime,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, split)
}

func (s *Server) handleListSplits(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var err error
	defer func() { observe("list", start, err) }()

	splits, err := s.svc.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	if splits == nil {
		splits = []*models.MealSplit{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"splits": splits})
}

func (s *Server) handleRequestJoin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var err error
	defer func() { observe("request_join", start, err) }()

	req, err := s.svc.RequestJoin(r.Context(), chi.URLParam(r, "splitID"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, req)
}

type respondRequest struct {
	Status models.RequestStatus `json:"status"`
}

// requireCreator rejects callers other than the split's current creator.
func (s *Server) requireCreator(r *http.Request, splitID string) error {
	split, err := s.svc.Get(r.Context(), splitID)
	if err != nil {
		return err
	}
	if split.CreatorID != middleware.GetUserID(r.Context()) {
		return errForbidden
	}
	return nil
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var err error
	defer func() { observe("respond", start, err) }()

	var body respondRequest
	if err = decodeJSON(r, &body); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	requestID := chi.URLParam(r, "requestID")

	// Only the creator of the split the request targets may resolve it.
	req, err := s.svc.GetRequest(r.Context(), requestID)
	if err != nil {
		respondError(w, err)
		return
	}
	if err = s.requireCreator(r, req.SplitID); err != nil {
		respondError(w, err)
		return
	}

	if err = s.svc.Respond(r.Context(), requestID, body.Status); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": body.Status})
}

func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var err error
	defer func() { observe("cancel_request", start, err) }()

	requestID := chi.URLParam(r, "requestID")

	// Only the requester may retract their own ask.
	req, err := s.svc.GetRequest(r.Context(), requestID)
	if err != nil {
		respondError(w, err)
		return
	}
	if req.RequesterID != middleware.GetUserID(r.Context()) {
		err = errForbidden
		respondError(w, err)
		return
	}

	if err = s.svc.CancelRequest(r.Context(), requestID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleLeaveSplit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var err error
	defer func() { observe("leave", start, err) }()

	if err = s.svc.Leave(r.Context(), chi.URLParam(r, "splitID"), middleware.GetUserID(r.Context())); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCompleteSplit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var err error
	defer func() { observe("complete", start, err) }()

	splitID := chi.URLParam(r, "splitID")
	if err = s.requireCreator(r, splitID); err != nil {
		respondError(w, err)
		return
	}

	split, err := s.svc.MarkComplete(r.Context(), splitID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, split)
}

func (s *Server) handleDeleteSplit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var err error
	defer func() { observe("delete", start, err) }()

	splitID := chi.URLParam(r, "splitID")
	if err = s.requireCreator(r, splitID); err != nil {
		respondError(w, err)
		return
	}

	if err = s.svc.Delete(r.Context(), splitID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
