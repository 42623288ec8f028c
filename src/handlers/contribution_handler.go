package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/username/poolfolio/backend/src/database"
	"github.com/username/poolfolio/backend/src/logger"
	"github.com/username/poolfolio/backend/src/model"
	"github.com/username/poolfolio/backend/src/models"
	"github.com/username/poolfolio/backend/src/security/validation"
	"github.com/username/poolfolio/backend/src/services"
	"github.com/username/poolfolio/backend/src/utils"
)

type ContributionHandler struct {
	portfolioService services.PortfolioService
}

func NewContributionHandler(portfolioService services.PortfolioService) *ContributionHandler {
	return &ContributionHandler{portfolioService: portfolioService}
}

func (h *ContributionHandler) HandleListContributions(w http.ResponseWriter, r *http.Request) {
	contributions, err := model.ListContributions(database.DB)
	if err != nil {
		logger.L.Error("Failed to list contributions", "error", err)
		utils.SendJSONError(w, "Failed to list contributions", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, contributions, http.StatusOK)
}

func (h *ContributionHandler) HandleCreateContribution(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MemberID int64   `json:"member_id"`
		Amount   float64 `json:"amount"`
		Date     string  `json:"date"`
		Note     string  `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if payload.Amount <= 0 {
		utils.SendJSONError(w, "Contribution amount must be positive", http.StatusBadRequest)
		return
	}
	if payload.Date == "" {
		payload.Date = utils.Today()
	}
	if !utils.ValidDate(payload.Date) {
		utils.SendJSONError(w, "Invalid date, expected format "+utils.DefaultDateFormat, http.StatusBadRequest)
		return
	}
	if _, err := model.GetMemberByID(database.DB, payload.MemberID); err != nil {
		utils.SendJSONError(w, "Member not found", http.StatusNotFound)
		return
	}

	contribution := &models.Contribution{
		MemberID: payload.MemberID,
		Amount:   payload.Amount,
		Date:     payload.Date,
		Note:     strings.TrimSpace(validation.StripUnprintable(payload.Note)),
	}
	if err := model.CreateContribution(database.DB, contribution); err != nil {
		logger.L.Error("Failed to create contribution", "memberID", payload.MemberID, "error", err)
		utils.SendJSONError(w, "Failed to create contribution", http.StatusInternalServerError)
		return
	}

	h.portfolioService.InvalidateCache()
	utils.SendJSON(w, contribution, http.StatusCreated)
}

func (h *ContributionHandler) HandleDeleteContribution(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid contribution ID", http.StatusBadRequest)
		return
	}

	if err := model.DeleteContribution(database.DB, id); err != nil {
		if err == model.ErrContributionNotFound {
			utils.SendJSONError(w, "Contribution not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to delete contribution", "contributionID", id, "error", err)
		utils.SendJSONError(w, "Failed to delete contribution", http.StatusInternalServerError)
		return
	}

	h.portfolioService.InvalidateCache()
	w.WriteHeader(http.StatusNoContent)
}
