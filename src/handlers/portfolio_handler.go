package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/username/poolfolio/backend/src/engine"
	"github.com/username/poolfolio/backend/src/logger"
	"github.com/username/poolfolio/backend/src/security/validation"
	"github.com/username/poolfolio/backend/src/services"
	"github.com/username/poolfolio/backend/src/utils"
)

type PortfolioHandler struct {
	portfolioService services.PortfolioService
}

func NewPortfolioHandler(portfolioService services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

func (h *PortfolioHandler) HandleGetPortfolioSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolioService.GetPortfolioSummary()
	if err != nil {
		var refErr *engine.ReferenceNotFoundError
		if errors.As(err, &refErr) {
			utils.SendJSONError(w, refErr.Error(), http.StatusConflict)
			return
		}
		logger.L.Error("Failed to build portfolio summary", "error", err)
		utils.SendJSONError(w, "Failed to build portfolio summary", http.StatusInternalServerError)
		return
	}

	currentETag, etagErr := utils.GenerateETag(summary)
	w.Header().Set("Cache-Control", "no-cache, private")
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("%q", currentETag)
		w.Header().Set("ETag", quotedETag)
		clientETag := r.Header.Get("If-None-Match")
		for _, cETag := range strings.Split(clientETag, ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	} else {
		logger.L.Warn("Proceeding without ETag check", "error", etagErr)
	}

	utils.SendJSON(w, summary, http.StatusOK)
}

func (h *PortfolioHandler) HandleGetSecuritySummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid security ID", http.StatusBadRequest)
		return
	}

	summary, err := h.portfolioService.GetSecuritySummary(id)
	if err != nil {
		var refErr *engine.ReferenceNotFoundError
		if errors.As(err, &refErr) {
			if refErr.Kind == "security" && refErr.ID == id {
				utils.SendJSONError(w, "Security not found", http.StatusNotFound)
				return
			}
			utils.SendJSONError(w, refErr.Error(), http.StatusConflict)
			return
		}
		logger.L.Error("Failed to build security summary", "securityID", id, "error", err)
		utils.SendJSONError(w, "Failed to build security summary", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, summary, http.StatusOK)
}

// HandleExportPortfolioCSV streams the member summary table as CSV. Member
// names are sanitized so a hostile name cannot become a spreadsheet formula.
func (h *PortfolioHandler) HandleExportPortfolioCSV(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolioService.GetPortfolioSummary()
	if err != nil {
		logger.L.Error("Failed to build portfolio summary for export", "error", err)
		utils.SendJSONError(w, "Failed to export portfolio summary", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="portfolio_summary.csv"`)

	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{
		"member", "total_contributions", "available_cash", "stock_value",
		"total_value", "cost_basis", "gain_loss", "gain_loss_pct", "ownership_pct",
	}
	if err := writer.Write(header); err != nil {
		logger.L.Error("Failed to write CSV header", "error", err)
		return
	}

	for _, m := range summary.Members {
		record := []string{
			validation.SanitizeForFormulaInjection(m.Name),
			formatMoney(m.TotalContributions),
			formatMoney(m.AvailableCash),
			formatMoney(m.StockValue),
			formatMoney(m.TotalValue),
			formatMoney(m.CostBasis),
			formatMoney(m.GainLoss),
			formatMoney(m.GainLossPercentage),
			formatMoney(m.OwnershipPercentage),
		}
		if err := writer.Write(record); err != nil {
			logger.L.Error("Failed to write CSV record", "memberID", m.MemberID, "error", err)
			return
		}
	}
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
