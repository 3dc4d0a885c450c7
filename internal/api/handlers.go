package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/riti-network/riti/internal/domain"
)

// ─── Request Types ──────────────────────────────────────────────────────────

type createWalletRequest struct {
	ID string `json:"id"`
}

type submitTaskRequest struct {
	Wallet string `json:"wallet"`
	Task   string `json:"task"`
	Proof  string `json:"proof"`
}

type createListingRequest struct {
	Seller        string `json:"seller"`
	PricePerToken uint64 `json:"price_per_token"`
	Quantity      uint64 `json:"quantity"`
}

// ListingID, when set, pins the request to the listing the caller saw at
// that position.
type buyRequest struct {
	Buyer     string `json:"buyer"`
	ListingID string `json:"listing_id,omitempty"`
	Quantity  uint64 `json:"quantity"`
}

type cancelRequest struct {
	Seller    string `json:"seller"`
	ListingID string `json:"listing_id,omitempty"`
}

// decode reads a JSON body into v. Malformed bodies are invalid input.
func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v: %w", err, domain.ErrInvalidInput)
	}
	return nil
}

func walletView(id string, w domain.Wallet) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"balance_yuki": w.Yuki,
		"balance_yg":   w.YG,
		"balance_yt":   w.YT,
	}
}

// ─── Status ─────────────────────────────────────────────────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "Riti is running",
		"ledger":   s.session.Ledger.Stats(),
		"wallets":  s.session.Wallets.Len(),
		"listings": s.session.Market.Len(),
	})
}

// ─── Wallets ────────────────────────────────────────────────────────────────

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	accounts := s.session.Wallets.List()
	out := make([]map[string]interface{}, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, walletView(a.ID, a.Wallet))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"wallets": out})
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if err := decode(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	wallet, err := s.session.CreateWallet(req.ID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, walletView(req.ID, wallet))
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wallet, err := s.session.Wallets.Get(id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, walletView(id, wallet))
}

// ─── Tasks & Chain ──────────────────────────────────────────────────────────

func (s *Server) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	var req submitTaskRequest
	if err := decode(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	block, err := s.session.Ledger.SubmitTask(r.Context(), req.Wallet, req.Task, req.Proof)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"blocks": s.session.Ledger.Blocks(),
	})
}

func (s *Server) handleVerifyChain(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"valid":  true,
		"height": s.session.Ledger.Len(),
	}
	if err := s.session.Ledger.Verify(); err != nil {
		resp["valid"] = false
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─── Marketplace ────────────────────────────────────────────────────────────

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	listings := s.session.Market.Listings()
	out := make([]map[string]interface{}, 0, len(listings))
	for i, l := range listings {
		out = append(out, map[string]interface{}{
			"position":         i + 1,
			"id":               l.ID,
			"seller":           l.Seller,
			"price_per_token":  l.PricePerToken,
			"tokens_available": l.TokensAvailable,
			"created_at":       l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listings": out})
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := decode(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	listing, err := s.session.Market.List(r.Context(), req.Seller, req.PricePerToken, req.Quantity)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	pos, err := domain.ParsePosition(chi.URLParam(r, "pos"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req buyRequest
	if err := decode(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	trade, err := s.session.Market.BuyListing(r.Context(), req.Buyer, pos, req.ListingID, req.Quantity)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	pos, err := domain.ParsePosition(chi.URLParam(r, "pos"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req cancelRequest
	if err := decode(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	listing, err := s.session.Market.CancelListing(r.Context(), req.Seller, pos, req.ListingID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	trades, err := s.session.RecentTrades(limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trades": trades})
}
