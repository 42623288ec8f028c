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

type SecurityHandler struct {
	priceService     services.PriceService
	portfolioService services.PortfolioService
}

func NewSecurityHandler(priceService services.PriceService, portfolioService services.PortfolioService) *SecurityHandler {
	return &SecurityHandler{
		priceService:     priceService,
		portfolioService: portfolioService,
	}
}

func (h *SecurityHandler) HandleListSecurities(w http.ResponseWriter, r *http.Request) {
	securities, err := model.ListSecurities(database.DB)
	if err != nil {
		logger.L.Error("Failed to list securities", "error", err)
		utils.SendJSONError(w, "Failed to list securities", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, securities, http.StatusOK)
}

func (h *SecurityHandler) HandleCreateSecurity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	payload.Symbol = strings.ToUpper(strings.TrimSpace(payload.Symbol))
	payload.Name = strings.TrimSpace(validation.StripUnprintable(payload.Name))
	if payload.Symbol == "" {
		utils.SendJSONError(w, "Security symbol is required", http.StatusBadRequest)
		return
	}

	security := &models.Security{Symbol: payload.Symbol, Name: payload.Name}
	if err := model.CreateSecurity(database.DB, security); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: securities.symbol") {
			utils.SendJSONError(w, "Security symbol already exists", http.StatusConflict)
			return
		}
		logger.L.Error("Failed to create security", "symbol", payload.Symbol, "error", err)
		utils.SendJSONError(w, "Failed to create security", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, security, http.StatusCreated)
}

func (h *SecurityHandler) HandleUpdateSecurity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid security ID", http.StatusBadRequest)
		return
	}

	security, err := model.GetSecurityByID(database.DB, id)
	if err != nil {
		utils.SendJSONError(w, "Security not found", http.StatusNotFound)
		return
	}

	var payload struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	payload.Symbol = strings.ToUpper(strings.TrimSpace(payload.Symbol))
	if payload.Symbol == "" {
		utils.SendJSONError(w, "Security symbol is required", http.StatusBadRequest)
		return
	}

	security.Symbol = payload.Symbol
	security.Name = strings.TrimSpace(validation.StripUnprintable(payload.Name))
	if err := model.UpdateSecurity(database.DB, security); err != nil {
		logger.L.Error("Failed to update security", "securityID", id, "error", err)
		utils.SendJSONError(w, "Failed to update security", http.StatusInternalServerError)
		return
	}

	h.portfolioService.InvalidateCache()
	utils.SendJSON(w, security, http.StatusOK)
}

func (h *SecurityHandler) HandleDeleteSecurity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid security ID", http.StatusBadRequest)
		return
	}

	if err := model.DeleteSecurity(database.DB, id); err != nil {
		switch err {
		case model.ErrSecurityNotFound:
			utils.SendJSONError(w, "Security not found", http.StatusNotFound)
		case model.ErrSecurityInUse:
			utils.SendJSONError(w, "Security has transactions and cannot be deleted", http.StatusConflict)
		default:
			logger.L.Error("Failed to delete security", "securityID", id, "error", err)
			utils.SendJSONError(w, "Failed to delete security", http.StatusInternalServerError)
		}
		return
	}

	h.portfolioService.InvalidateCache()
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefreshPrices pulls current quotes for every security and stores the
// ones that succeed. Securities whose quote failed keep their previous price.
func (h *SecurityHandler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	updated, err := services.RefreshSecurityPrices(database.DB, h.priceService)
	if err != nil {
		logger.L.Error("Price refresh failed", "error", err)
		utils.SendJSONError(w, "Failed to refresh prices", http.StatusInternalServerError)
		return
	}

	if updated > 0 {
		h.portfolioService.InvalidateCache()
	}
	utils.SendJSON(w, map[string]int{"updated": updated}, http.StatusOK)
}
