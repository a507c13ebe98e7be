package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mananjary-mi/family-portal/pkg/genealogy"
	"github.com/mananjary-mi/family-portal/pkg/models"
	"github.com/mananjary-mi/family-portal/pkg/services"
	"github.com/mananjary-mi/family-portal/pkg/session"
)

// FamilyTreeResponse wraps a family view with a one-line summary.
type FamilyTreeResponse struct {
	models.FamilyView `yaml:",inline"`
	Summary           string `json:"summary" yaml:"summary"`
}

// RelationListResponse is the tabular relation listing.
type RelationListResponse struct {
	Relations []models.RelationRow `json:"relations" yaml:"relations"`
	Total     int                  `json:"total" yaml:"total"`
}

// FamilyHandler serves family trees and relation listings.
type FamilyHandler struct {
	familyService services.FamilyTreeService
	logger        *zap.Logger
}

// NewFamilyHandler creates a new family handler.
func NewFamilyHandler(familyService services.FamilyTreeService, logger *zap.Logger) *FamilyHandler {
	return &FamilyHandler{
		familyService: familyService,
		logger:        logger,
	}
}

// RegisterRoutes registers the family handler's routes on the given mux.
// Every route requires a session.
func (h *FamilyHandler) RegisterRoutes(mux *http.ServeMux, sessionMiddleware *session.Middleware) {
	mux.HandleFunc("GET /api/family/tree", sessionMiddleware.RequireSession(h.MyTree))
	mux.HandleFunc("GET /api/family/tree/{pid}", sessionMiddleware.RequireSession(h.Tree))
	mux.HandleFunc("GET /api/family/relations", sessionMiddleware.RequireSession(h.Relations))
}

// MyTree handles GET /api/family/tree, rooted at the logged-in member.
func (h *FamilyHandler) MyTree(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		if err := ErrorResponse(w, http.StatusUnauthorized, "session_required", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	h.writeTree(w, r, sess.UserID)
}

// Tree handles GET /api/family/tree/{pid}.
func (h *FamilyHandler) Tree(w http.ResponseWriter, r *http.Request) {
	rootID, ok := ParsePersonID(w, r, h.logger)
	if !ok {
		return
	}
	h.writeTree(w, r, rootID)
}

func (h *FamilyHandler) writeTree(w http.ResponseWriter, r *http.Request, rootID int64) {
	view, err := h.familyService.GetFamilyView(r.Context(), rootID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "no_view")
		return
	}

	response := FamilyTreeResponse{
		FamilyView: *view,
		Summary:    genealogy.Summary(view),
	}
	if err := WriteNegotiated(w, r, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode family tree response", zap.Error(err))
	}
}

// Relations handles GET /api/family/relations[?user_id=N].
func (h *FamilyHandler) Relations(w http.ResponseWriter, r *http.Request) {
	forUser, ok := ParseOptionalUserID(w, r, h.logger)
	if !ok {
		return
	}

	rows, err := h.familyService.ListRelationRows(r.Context(), forUser)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "not_found")
		return
	}
	if rows == nil {
		rows = []models.RelationRow{}
	}

	response := RelationListResponse{Relations: rows, Total: len(rows)}
	if err := WriteNegotiated(w, r, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode relations response", zap.Error(err))
	}
}
