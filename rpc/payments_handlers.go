package rpc

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agrichain/crypto"
)

type createPaymentRequest struct {
	Caller      string `json:"caller"`
	OrderRef    string `json:"orderRef"`
	Payee       string `json:"payee"`
	ReleaseTime int64  `json:"releaseTime"`
	Amount      string `json:"amount"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	payee, err := parseAddr("payee", req.Payee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.Lock()
	payment, err := s.payments.CreatePayment(caller, req.OrderRef, payee, req.ReleaseTime, amount)
	s.mu.Unlock()
	s.observe("payments", "createPayment", err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeResult(w, map[string]interface{}{
		"paymentId": payment.ID,
		"status":    payment.Status.String(),
		"feeBps":    payment.FeeBps,
	})
}

type paymentActionRequest struct {
	Caller    string `json:"caller"`
	PaymentID uint64 `json:"paymentId"`
}

func (s *Server) handleReleasePayment(w http.ResponseWriter, r *http.Request) {
	s.paymentMutation(w, r, "release", s.payments.Release)
}

func (s *Server) handleRequestRefund(w http.ResponseWriter, r *http.Request) {
	s.paymentMutation(w, r, "requestRefund", s.payments.RequestRefund)
}

func (s *Server) handleCancelPayment(w http.ResponseWriter, r *http.Request) {
	s.paymentMutation(w, r, "cancel", s.payments.Cancel)
}

func (s *Server) paymentMutation(w http.ResponseWriter, r *http.Request, op string, apply func(caller [20]byte, paymentID uint64) error) {
	var req paymentActionRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.Lock()
	err = apply(caller, req.PaymentID)
	s.mu.Unlock()
	s.observe("payments", op, err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeResult(w, map[string]string{"status": "ok"})
}

type resolveDisputeRequest struct {
	Caller     string `json:"caller"`
	PaymentID  uint64 `json:"paymentId"`
	FavorPayee bool   `json:"favorPayee"`
}

func (s *Server) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	var req resolveDisputeRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.Lock()
	err = s.payments.ResolveDispute(caller, req.PaymentID, req.FavorPayee)
	s.mu.Unlock()
	s.observe("payments", "resolveDispute", err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeResult(w, map[string]string{"status": "ok"})
}

type setFeeRequest struct {
	Caller string `json:"caller"`
	FeeBps uint32 `json:"feeBps"`
}

func (s *Server) handleSetPlatformFee(w http.ResponseWriter, r *http.Request) {
	var req setFeeRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.Lock()
	err = s.payments.SetPlatformFee(caller, req.FeeBps)
	s.mu.Unlock()
	s.observe("payments", "setPlatformFee", err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeResult(w, map[string]string{"status": "ok"})
}

type setWalletRequest struct {
	Caller string `json:"caller"`
	Wallet string `json:"wallet"`
}

func (s *Server) handleSetPlatformWallet(w http.ResponseWriter, r *http.Request) {
	s.walletMutation(w, r, "setPlatformWallet", s.payments.SetPlatformWallet)
}

func (s *Server) handleSetMultiSigWallet(w http.ResponseWriter, r *http.Request) {
	s.walletMutation(w, r, "setMultiSigWallet", s.payments.SetMultiSigWallet)
}

func (s *Server) walletMutation(w http.ResponseWriter, r *http.Request, op string, apply func(caller, wallet [20]byte) error) {
	var req setWalletRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	wallet, err := parseAddr("wallet", req.Wallet)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.Lock()
	err = apply(caller, wallet)
	s.mu.Unlock()
	s.observe("payments", op, err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeResult(w, map[string]string{"status": "ok"})
}

type callerRequest struct {
	Caller string `json:"caller"`
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.adminToggle(w, r, "pause", s.payments.Pause)
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	s.adminToggle(w, r, "unpause", s.payments.Unpause)
}

func (s *Server) adminToggle(w http.ResponseWriter, r *http.Request, op string, apply func(caller [20]byte) error) {
	var req callerRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.Lock()
	err = apply(caller)
	s.mu.Unlock()
	s.observe("payments", op, err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeResult(w, map[string]string{"status": "ok"})
}

type setEnabledRequest struct {
	Caller  string `json:"caller"`
	Enabled bool   `json:"enabled"`
}

func (s *Server) handleSetMultiSigEnabled(w http.ResponseWriter, r *http.Request) {
	var req setEnabledRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.Lock()
	err = s.payments.SetMultiSigEnabled(caller, req.Enabled)
	s.mu.Unlock()
	s.observe("payments", "setMultiSigEnabled", err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeResult(w, map[string]string{"status": "ok"})
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "id must be an unsigned integer")
		return
	}
	s.mu.RLock()
	payment, err := s.payments.GetPayment(id)
	s.mu.RUnlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	fee, payeeAmount := payment.FeeSplit()
	writeResult(w, map[string]interface{}{
		"paymentId":   payment.ID,
		"orderRef":    payment.OrderRef,
		"payer":       crypto.MustAddress(payment.Payer).String(),
		"payee":       crypto.MustAddress(payment.Payee).String(),
		"amount":      payment.Amount.String(),
		"feeBps":      payment.FeeBps,
		"feeAmount":   fee.String(),
		"payeeAmount": payeeAmount.String(),
		"releaseTime": payment.ReleaseTime,
		"createdAt":   payment.CreatedAt,
		"status":      payment.Status.String(),
	})
}
