package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strings"
	"time"

	"github.com/username/poolfolio/backend/src/logger"
	"github.com/username/poolfolio/backend/src/model"
	"golang.org/x/net/publicsuffix"
)

const quoteUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
			Currency           string  `json:"currency"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteResponse"`
}

// priceServiceImpl fetches quotes from Yahoo Finance. Yahoo's quote endpoint
// needs session cookies plus a "crumb" token, bootstrapped by loading a quote
// page once.
type priceServiceImpl struct {
	httpClient http.Client
	crumb      string
}

func NewPriceService() PriceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	s := &priceServiceImpl{
		httpClient: http.Client{
			Jar:     jar,
			Timeout: 20 * time.Second,
		},
	}

	if err := s.initializeYahooSession(); err != nil {
		logger.L.Error("Failed to initialize Yahoo Finance session. Price fetching may fail.", "error", err)
	}
	return s
}

// initializeYahooSession visits a Yahoo Finance page to get the cookies and
// crumb the quote endpoint requires.
func (s *priceServiceImpl) initializeYahooSession() error {
	logger.L.Info("Initializing Yahoo Finance session to get crumb and cookies...")
	req, err := http.NewRequest("GET", "https://finance.yahoo.com/quote/VHYL.L", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", quoteUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make initial request to Yahoo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Yahoo response body: %w", err)
	}

	re := regexp.MustCompile(`"CrumbStore":{"crumb":"(.*?)"}`)
	matches := re.FindStringSubmatch(string(body))
	if len(matches) < 2 {
		return fmt.Errorf("could not find crumb in Yahoo Finance response. The page structure may have changed")
	}

	s.crumb = matches[1]
	logger.L.Info("Successfully obtained Yahoo Finance crumb.")
	return nil
}

// GetCurrentPrices quotes each symbol. Symbols that fail stay UNAVAILABLE in
// the result rather than failing the whole batch.
func (s *priceServiceImpl) GetCurrentPrices(symbols []string) (map[string]PriceInfo, error) {
	result := make(map[string]PriceInfo)
	unique := make(map[string]bool)
	for _, symbol := range symbols {
		result[symbol] = PriceInfo{Status: "UNAVAILABLE"}
		if symbol != "" {
			unique[symbol] = true
		}
	}
	if len(unique) == 0 {
		return result, nil
	}

	if s.crumb == "" {
		logger.L.Warn("Yahoo crumb is missing, attempting to re-initialize session.")
		if err := s.initializeYahooSession(); err != nil {
			return result, fmt.Errorf("failed to re-initialize Yahoo session: %w", err)
		}
	}

	for symbol := range unique {
		time.Sleep(250 * time.Millisecond) // respectful delay

		price, currency, err := s.getPriceForSymbol(symbol)
		if err != nil {
			logger.L.Warn("Quote fetch failed", "symbol", symbol, "error", err)
			continue
		}
		logger.L.Info("Quote fetched", "symbol", symbol, "price", price, "currency", currency)
		result[symbol] = PriceInfo{Status: "OK", Price: price, Currency: currency}
	}
	return result, nil
}

func (s *priceServiceImpl) getPriceForSymbol(symbol string) (float64, string, error) {
	quoteURL := fmt.Sprintf("https://query2.finance.yahoo.com/v7/finance/quote?symbols=%s&crumb=%s", symbol, s.crumb)
	req, err := http.NewRequest("GET", quoteURL, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("User-Agent", quoteUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("failed to call Yahoo quote API for symbol %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return 0, "", fmt.Errorf("yahoo quote API returned non-OK status %d for symbol %s. Body: %s", resp.StatusCode, symbol, string(bodyBytes))
	}

	var quoteData yahooQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quoteData); err != nil {
		return 0, "", fmt.Errorf("failed to decode Yahoo quote response for symbol %s: %w", symbol, err)
	}
	if quoteData.QuoteResponse.Error != nil || len(quoteData.QuoteResponse.Result) == 0 {
		return 0, "", fmt.Errorf("yahoo quote API returned an error or no result for symbol %s", symbol)
	}

	quote := quoteData.QuoteResponse.Result[0]
	return quote.RegularMarketPrice, strings.ToUpper(quote.Currency), nil
}

// RefreshSecurityPrices quotes every security in the ledger and stores what
// succeeded. Failed quotes leave the stored price untouched; valuation treats
// a missing price as zero. Returns how many prices were updated.
func RefreshSecurityPrices(db *sql.DB, priceService PriceService) (int, error) {
	securities, err := model.ListSecurities(db)
	if err != nil {
		return 0, fmt.Errorf("listing securities for price refresh: %w", err)
	}
	if len(securities) == 0 {
		return 0, nil
	}

	symbols := make([]string, 0, len(securities))
	for _, sec := range securities {
		symbols = append(symbols, sec.Symbol)
	}

	prices, err := priceService.GetCurrentPrices(symbols)
	if err != nil {
		logger.L.Warn("Price refresh completed with errors", "error", err)
	}

	updated := 0
	for _, sec := range securities {
		info, found := prices[sec.Symbol]
		if !found || info.Status != "OK" {
			continue
		}
		if err := model.UpdateSecurityPrice(db, sec.ID, info.Price); err != nil {
			logger.L.Error("Failed to store refreshed price", "symbol", sec.Symbol, "error", err)
			continue
		}
		updated++
	}
	logger.L.Info("Security prices refreshed", "requested", len(symbols), "updated", updated)
	return updated, nil
}
