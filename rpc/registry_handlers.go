package rpc

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agrichain/crypto"
	"agrichain/native/registry"
	"agrichain/observability/metrics"
)

type registerProductRequest struct {
	Caller      string `json:"caller"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Quantity    uint64 `json:"quantity"`
	Unit        string `json:"unit"`
	BasePrice   string `json:"basePrice"`
	Price       string `json:"price"`
	MetadataRef string `json:"metadataRef"`
}

func (s *Server) handleRegisterProduct(w http.ResponseWriter, r *http.Request) {
	var req registerProductRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	basePrice, err := parseAmount("basePrice", req.BasePrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	price, err := parseAmount("price", req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.Lock()
	product, err := s.registry.RegisterProduct(caller, req.Name, req.Category, req.Quantity, req.Unit, basePrice, price, req.MetadataRef)
	s.mu.Unlock()
	s.observe("registry", "registerProduct", err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	metrics.Core().ProductsPendingAdd(1)
	writeResult(w, map[string]interface{}{
		"productId": product.ID,
		"status":    product.Status.String(),
	})
}

type productActionRequest struct {
	Caller    string `json:"caller"`
	ProductID uint64 `json:"productId"`
}

func (s *Server) handleApproveProduct(w http.ResponseWriter, r *http.Request) {
	s.productReview(w, r, "approveProduct", s.registry.ApproveProduct)
}

func (s *Server) handleRejectProduct(w http.ResponseWriter, r *http.Request) {
	s.productReview(w, r, "rejectProduct", s.registry.RejectProduct)
}

func (s *Server) productReview(w http.ResponseWriter, r *http.Request, op string, apply func(caller [20]byte, productID uint64) error) {
	var req productActionRequest
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
	err = apply(caller, req.ProductID)
	s.mu.Unlock()
	s.observe("registry", op, err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	metrics.Core().ProductsPendingAdd(-1)
	writeResult(w, map[string]string{"status": "ok"})
}

type commitPriceRequest struct {
	Caller     string `json:"caller"`
	ProductID  uint64 `json:"productId"`
	Commitment string `json:"commitment"`
}

func (s *Server) handleCommitPrice(w http.ResponseWriter, r *http.Request) {
	var req commitPriceRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	commitment, err := parseHash32("commitment", req.Commitment)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.Lock()
	err = s.registry.CommitPriceUpdate(caller, req.ProductID, commitment)
	s.mu.Unlock()
	s.observe("registry", "commitPriceUpdate", err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeResult(w, map[string]string{"status": "ok"})
}

type revealPriceRequest struct {
	Caller    string `json:"caller"`
	ProductID uint64 `json:"productId"`
	NewPrice  string `json:"newPrice"`
	Salt      string `json:"salt"`
}

func (s *Server) handleRevealPrice(w http.ResponseWriter, r *http.Request) {
	var req revealPriceRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	newPrice, err := parseAmount("newPrice", req.NewPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	salt, err := parseHash32("salt", req.Salt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.Lock()
	err = s.registry.RevealPriceUpdate(caller, req.ProductID, newPrice, salt)
	s.mu.Unlock()
	s.observe("registry", "revealPriceUpdate", err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeResult(w, map[string]string{"status": "ok", "newPrice": newPrice.String()})
}

type transferRequest struct {
	Caller      string `json:"caller"`
	ProductID   uint64 `json:"productId"`
	NewOwner    string `json:"newOwner"`
	LocationRef string `json:"locationRef"`
	AgreedPrice string `json:"agreedPrice"`
	PaymentRef  string `json:"paymentRef"`
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	newOwner, err := parseAddr("newOwner", req.NewOwner)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	agreedPrice, err := parseAmount("agreedPrice", req.AgreedPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.Lock()
	err = s.registry.TransferOwnership(caller, req.ProductID, newOwner, req.LocationRef, agreedPrice, req.PaymentRef)
	s.mu.Unlock()
	s.observe("registry", "transferOwnership", err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeResult(w, map[string]string{"status": "ok"})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "id must be an unsigned integer")
		return
	}
	s.mu.RLock()
	product, err := s.registry.GetProduct(id)
	s.mu.RUnlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeResult(w, productView(product))
}

func (s *Server) handleGetTransfers(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "id must be an unsigned integer")
		return
	}
	s.mu.RLock()
	records, err := s.registry.TransferHistory(id)
	s.mu.RUnlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	views := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		views = append(views, map[string]interface{}{
			"from":          crypto.MustAddress(record.From).String(),
			"to":            crypto.MustAddress(record.To).String(),
			"locationRef":   record.LocationRef,
			"agreedPrice":   record.AgreedPrice.String(),
			"paymentRef":    record.PaymentRef,
			"transferredAt": record.TransferredAt,
		})
	}
	writeResult(w, map[string]interface{}{"productId": id, "transfers": views})
}

func productView(product *registry.Product) map[string]interface{} {
	view := map[string]interface{}{
		"productId":    product.ID,
		"owner":        crypto.MustAddress(product.Owner).String(),
		"name":         product.Name,
		"category":     product.Category,
		"quantity":     product.Quantity,
		"unit":         product.Unit,
		"basePrice":    product.BasePrice.String(),
		"pricePerUnit": product.PricePerUnit.String(),
		"metadataRef":  product.MetadataRef,
		"status":       product.Status.String(),
		"registeredAt": product.RegisteredAt,
	}
	if product.Commitment != nil {
		view["pendingCommitment"] = map[string]interface{}{
			"committer":   crypto.MustAddress(product.Commitment.Committer).String(),
			"committedAt": product.Commitment.CommittedAt,
		}
	}
	return view
}
