package http

import (
	"net/http"
	"strings"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/query"
)

type transactionRequest struct {
	Type        core.TransactionType `json:"type"`
	Category    string               `json:"category"`
	Amount      amountInput          `json:"amount"`
	Description string               `json:"description"`
	Remarks     string               `json:"remarks"`
	Date        string               `json:"date"` // YYYY-MM-DD; empty means today
	AccountID   string               `json:"account_id"`
	ToAccountID string               `json:"to_account_id"`
}

type transactionList struct {
	Count        int                `json:"count"`
	Transactions []core.Transaction `json:"transactions"`
}

func (req transactionRequest) toNewTransaction() (ledger.NewTransaction, error) {
	// An unparseable amount stays zero so the ledger reports it in its
	// usual field order.
	amount, _ := core.ParseAmount(string(req.Amount))

	var date core.Date
	if d := strings.TrimSpace(req.Date); d != "" {
		var err error
		date, err = core.ParseDate(d)
		if err != nil {
			return ledger.NewTransaction{}, core.Invalid("date", core.ErrInvalidDate)
		}
	}

	return ledger.NewTransaction{
		Type:        core.TransactionType(strings.ToLower(strings.TrimSpace(string(req.Type)))),
		Category:    req.Category,
		Amount:      amount,
		Description: req.Description,
		Remarks:     req.Remarks,
		Date:        date,
		AccountID:   req.AccountID,
		ToAccountID: req.ToAccountID,
	}, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	txs := query.Apply(s.svc.Book().Transactions(), f, s.now())
	writeJSON(w, http.StatusOK, transactionList{Count: len(txs), Transactions: txs})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.Book().Transaction(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpRecord, err)
		return
	}
	in, err := req.toNewTransaction()
	if err != nil {
		s.writeError(w, r, log.OpRecord, err)
		return
	}

	tx, err := s.svc.Record(r.Context(), in)
	if err != nil {
		s.writeError(w, r, log.OpRecord, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// handleReplaceTransaction reverses the transaction and records the request
// in its place. The replacement gets a new id.
func (s *Server) handleReplaceTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpReplace, err)
		return
	}
	in, err := req.toNewTransaction()
	if err != nil {
		s.writeError(w, r, log.OpReplace, err)
		return
	}

	tx, err := s.svc.ReplaceTransaction(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, log.OpReplace, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleReverseTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reverse(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpReverse, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
