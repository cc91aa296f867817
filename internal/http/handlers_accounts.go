package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
)

type accountRequest struct {
	Bank    string           `json:"bank"`
	Name    string           `json:"name"`
	Number  string           `json:"number"`
	Type    core.AccountType `json:"type"`
	Balance *amountInput     `json:"balance"`
	Color   string           `json:"color"`
}

type accountPatchRequest struct {
	Bank    *string           `json:"bank"`
	Name    *string           `json:"name"`
	Number  *string           `json:"number"`
	Type    *core.AccountType `json:"type"`
	Color   *string           `json:"color"`
	Balance *amountInput      `json:"balance"`
}

type correctionRequest struct {
	Balance amountInput `json:"balance"`
	Reason  string      `json:"reason"`
}

func parseBalance(in *amountInput) (decimal.Decimal, error) {
	if in == nil {
		return decimal.Zero, nil
	}
	d, err := core.ParseSignedAmount(string(*in))
	if err != nil {
		return decimal.Zero, core.Invalid("balance", err)
	}
	return d, nil
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Book().Accounts())
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := s.svc.Book().Account(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	balance, err := parseBalance(req.Balance)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	acc, err := s.svc.CreateAccount(r.Context(), ledger.NewAccount{
		Bank:    req.Bank,
		Name:    req.Name,
		Number:  req.Number,
		Type:    req.Type,
		Balance: balance,
		Color:   req.Color,
	})
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

// handleUpdateAccount merges the given fields. A balance is applied as a
// correction.
func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}

	patch := ledger.AccountPatch{
		Bank:   req.Bank,
		Name:   req.Name,
		Number: req.Number,
		Type:   req.Type,
		Color:  req.Color,
	}
	if req.Balance != nil {
		balance, err := parseBalance(req.Balance)
		if err != nil {
			s.writeError(w, r, log.OpUpdate, err)
			return
		}
		patch.Balance = &balance
	}

	acc, err := s.svc.UpdateAccount(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) handleCorrectBalance(w http.ResponseWriter, r *http.Request) {
	var req correctionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCorrect, err)
		return
	}
	balance, err := parseBalance(&req.Balance)
	if err != nil {
		s.writeError(w, r, log.OpCorrect, err)
		return
	}

	acc, err := s.svc.CorrectBalance(r.Context(), r.PathValue("id"), balance, req.Reason)
	if err != nil {
		s.writeError(w, r, log.OpCorrect, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
