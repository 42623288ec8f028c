package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/poolfolio/backend/src/database"
	"github.com/username/poolfolio/backend/src/engine"
	"github.com/username/poolfolio/backend/src/logger"
	"github.com/username/poolfolio/backend/src/model"
	"github.com/username/poolfolio/backend/src/models"
	"github.com/username/poolfolio/backend/src/services"
	"github.com/username/poolfolio/backend/src/utils"
)

type TransactionHandler struct {
	portfolioService services.PortfolioService
}

func NewTransactionHandler(portfolioService services.PortfolioService) *TransactionHandler {
	return &TransactionHandler{portfolioService: portfolioService}
}

func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := model.ListTransactions(database.DB)
	if err != nil {
		logger.L.Error("Failed to list transactions", "error", err)
		utils.SendJSONError(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, transactions, http.StatusOK)
}

func (h *TransactionHandler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SecurityID   int64   `json:"security_id"`
		Type         string  `json:"type"`
		Date         string  `json:"date"`
		Quantity     float64 `json:"quantity"`
		PricePerUnit float64 `json:"price_per_unit"`
		Allocations  []struct {
			MemberID   int64   `json:"member_id"`
			Amount     float64 `json:"amount"`
			Percentage float64 `json:"percentage"`
		} `json:"allocations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if payload.Date == "" {
		payload.Date = utils.Today()
	}
	if !utils.ValidDate(payload.Date) {
		utils.SendJSONError(w, "Invalid date, expected format "+utils.DefaultDateFormat, http.StatusBadRequest)
		return
	}

	transaction := &models.Transaction{
		SecurityID:   payload.SecurityID,
		Type:         payload.Type,
		Date:         payload.Date,
		Quantity:     payload.Quantity,
		PricePerUnit: payload.PricePerUnit,
	}
	for _, a := range payload.Allocations {
		transaction.Allocations = append(transaction.Allocations, models.Allocation{
			MemberID:   a.MemberID,
			Amount:     a.Amount,
			Percentage: a.Percentage,
		})
	}

	if err := model.ValidateTransaction(transaction); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := model.GetSecurityByID(database.DB, transaction.SecurityID); err != nil {
		utils.SendJSONError(w, "Security not found", http.StatusNotFound)
		return
	}
	for _, a := range transaction.Allocations {
		if _, err := model.GetMemberByID(database.DB, a.MemberID); err != nil {
			utils.SendJSONError(w, "Member not found", http.StatusNotFound)
			return
		}
	}

	if err := model.CreateTransaction(database.DB, transaction); err != nil {
		logger.L.Error("Failed to create transaction", "securityID", transaction.SecurityID, "error", err)
		utils.SendJSONError(w, "Failed to create transaction", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Transaction recorded",
		"transactionID", transaction.ID,
		"type", transaction.Type,
		"securityID", transaction.SecurityID,
		"total", transaction.Total())
	h.portfolioService.InvalidateCache()
	utils.SendJSON(w, transaction, http.StatusCreated)
}

func (h *TransactionHandler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid transaction ID", http.StatusBadRequest)
		return
	}

	if err := model.DeleteTransaction(database.DB, id); err != nil {
		if err == model.ErrTransactionNotFound {
			utils.SendJSONError(w, "Transaction not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to delete transaction", "transactionID", id, "error", err)
		utils.SendJSONError(w, "Failed to delete transaction", http.StatusInternalServerError)
		return
	}

	h.portfolioService.InvalidateCache()
	w.WriteHeader(http.StatusNoContent)
}

// HandleProposeSellAllocations returns a per-member split for a prospective
// sale, proportional to current holdings. Nothing is written; the caller
// reviews the proposal, adjusts rounding, and submits it as a transaction.
func (h *TransactionHandler) HandleProposeSellAllocations(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SecurityID   int64   `json:"security_id"`
		Quantity     float64 `json:"quantity"`
		PricePerUnit float64 `json:"price_per_unit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.Quantity <= 0 || payload.PricePerUnit <= 0 {
		utils.SendJSONError(w, "Quantity and price per unit must be positive", http.StatusBadRequest)
		return
	}

	proposals, err := h.portfolioService.ProposeSellAllocations(payload.SecurityID, payload.Quantity, payload.PricePerUnit)
	if err != nil {
		var refErr *engine.ReferenceNotFoundError
		if errors.As(err, &refErr) {
			utils.SendJSONError(w, refErr.Error(), http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to build sell proposal", "securityID", payload.SecurityID, "error", err)
		utils.SendJSONError(w, "Failed to build sell proposal", http.StatusInternalServerError)
		return
	}

	// Amounts are money, round to cents for presentation. Percentages stay
	// raw so the caller can reconcile any residue.
	for i := range proposals {
		proposals[i].Amount = utils.RoundFloat(proposals[i].Amount, 2)
	}
	utils.SendJSON(w, proposals, http.StatusOK)
}
