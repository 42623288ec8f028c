package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/username/poolfolio/backend/src/database"
	"github.com/username/poolfolio/backend/src/logger"
	"github.com/username/poolfolio/backend/src/model"
	"github.com/username/poolfolio/backend/src/models"
	"github.com/username/poolfolio/backend/src/security/validation"
	"github.com/username/poolfolio/backend/src/services"
	"github.com/username/poolfolio/backend/src/utils"
)

type MemberHandler struct {
	portfolioService services.PortfolioService
}

func NewMemberHandler(portfolioService services.PortfolioService) *MemberHandler {
	return &MemberHandler{portfolioService: portfolioService}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (h *MemberHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := model.ListMembers(database.DB)
	if err != nil {
		logger.L.Error("Failed to list members", "error", err)
		utils.SendJSONError(w, "Failed to list members", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, members, http.StatusOK)
}

func (h *MemberHandler) HandleCreateMember(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name    string `json:"name"`
		IsAdmin bool   `json:"is_admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	payload.Name = strings.TrimSpace(validation.StripUnprintable(payload.Name))
	if payload.Name == "" {
		utils.SendJSONError(w, "Member name is required", http.StatusBadRequest)
		return
	}

	member := &models.Member{Name: payload.Name, IsAdmin: payload.IsAdmin}
	if err := model.CreateMember(database.DB, member); err != nil {
		logger.L.Error("Failed to create member", "name", payload.Name, "error", err)
		utils.SendJSONError(w, "Failed to create member", http.StatusInternalServerError)
		return
	}

	h.portfolioService.InvalidateCache()
	utils.SendJSON(w, member, http.StatusCreated)
}

func (h *MemberHandler) HandleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid member ID", http.StatusBadRequest)
		return
	}

	member, err := model.GetMemberByID(database.DB, id)
	if err != nil {
		utils.SendJSONError(w, "Member not found", http.StatusNotFound)
		return
	}

	var payload struct {
		Name    string `json:"name"`
		IsAdmin bool   `json:"is_admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	payload.Name = strings.TrimSpace(validation.StripUnprintable(payload.Name))
	if payload.Name == "" {
		utils.SendJSONError(w, "Member name is required", http.StatusBadRequest)
		return
	}

	member.Name = payload.Name
	member.IsAdmin = payload.IsAdmin
	if err := model.UpdateMember(database.DB, member); err != nil {
		logger.L.Error("Failed to update member", "memberID", id, "error", err)
		utils.SendJSONError(w, "Failed to update member", http.StatusInternalServerError)
		return
	}

	h.portfolioService.InvalidateCache()
	utils.SendJSON(w, member, http.StatusOK)
}

// HandleDeleteMember removes the member along with their contributions and
// allocations. Transactions they participated in are kept.
func (h *MemberHandler) HandleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid member ID", http.StatusBadRequest)
		return
	}

	if _, err := model.GetMemberByID(database.DB, id); err != nil {
		utils.SendJSONError(w, "Member not found", http.StatusNotFound)
		return
	}

	if err := model.DeleteMember(database.DB, id); err != nil {
		logger.L.Error("Failed to delete member", "memberID", id, "error", err)
		utils.SendJSONError(w, "Failed to delete member", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Member deleted", "memberID", id)
	h.portfolioService.InvalidateCache()
	w.WriteHeader(http.StatusNoContent)
}
