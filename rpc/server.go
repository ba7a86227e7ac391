package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agrichain/core/events"
	"agrichain/crypto"
	"agrichain/native/access"
	"agrichain/native/common"
	"agrichain/native/multisig"
	"agrichain/native/payments"
	"agrichain/native/ratelimit"
	"agrichain/native/registry"
	"agrichain/observability/metrics"
)

const requestLimit = 1 << 20 // 1 MiB

// Server exposes the core operations over HTTP. Authentication is external:
// every request carries an already-authenticated caller address, and the
// session layer in front of this service is responsible for rejecting
// revoked credentials before a request gets here.
//
// All mutating operations run under a single exclusive lock so each one
// executes fully serialized, all-or-nothing, as the state machine requires.
// Query handlers take the read side, so a multi-write operation can never be
// observed half applied while reads stay concurrent with each other.
type Server struct {
	mu       sync.RWMutex
	access   *access.Engine
	registry *registry.Engine
	payments *payments.Engine
	feed     *events.Recorder
	logger   *slog.Logger
}

func NewServer(accessEngine *access.Engine, registryEngine *registry.Engine, paymentsEngine *payments.Engine, feed *events.Recorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		access:   accessEngine,
		registry: registryEngine,
		payments: paymentsEngine,
		feed:     feed,
		logger:   logger,
	}
}

// Router mounts every handler and the operational endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/events", s.handleEvents)

	r.Route("/access", func(r chi.Router) {
		r.Post("/grant-role", s.handleGrantRole)
		r.Post("/revoke-role", s.handleRevokeRole)
		r.Post("/verify-user", s.handleVerifyUser)
		r.Post("/approve-kyc", s.handleApproveKYC)
		r.Post("/reject-kyc", s.handleRejectKYC)
		r.Get("/actors/{addr}", s.handleActorStatus)
	})

	r.Route("/registry", func(r chi.Router) {
		r.Post("/register", s.handleRegisterProduct)
		r.Post("/approve", s.handleApproveProduct)
		r.Post("/reject", s.handleRejectProduct)
		r.Post("/commit-price", s.handleCommitPrice)
		r.Post("/reveal-price", s.handleRevealPrice)
		r.Post("/transfer", s.handleTransferOwnership)
		r.Get("/products/{id}", s.handleGetProduct)
		r.Get("/products/{id}/transfers", s.handleGetTransfers)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/create", s.handleCreatePayment)
		r.Post("/release", s.handleReleasePayment)
		r.Post("/request-refund", s.handleRequestRefund)
		r.Post("/resolve-dispute", s.handleResolveDispute)
		r.Post("/cancel", s.handleCancelPayment)
		r.Post("/set-platform-fee", s.handleSetPlatformFee)
		r.Post("/set-platform-wallet", s.handleSetPlatformWallet)
		r.Post("/pause", s.handlePause)
		r.Post("/unpause", s.handleUnpause)
		r.Post("/set-multisig-wallet", s.handleSetMultiSigWallet)
		r.Post("/set-multisig-enabled", s.handleSetMultiSigEnabled)
		r.Get("/records/{id}", s.handleGetPayment)
	})

	return r
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_input", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	var records []events.Record
	if s.feed != nil {
		records = s.feed.Recent(limit)
	}
	writeResult(w, map[string]interface{}{"events": records})
}

// --- request plumbing ---

func decodeRequest(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, requestLimit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseAddr(field, value string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, fmt.Errorf("%s: %w", field, err)
	}
	return addr.Array(), nil
}

func parseAmount(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("%s must not be empty", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%s must be a base-10 integer", field)
	}
	return amount, nil
}

func parseHash32(field, value string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	if err != nil {
		return out, fmt.Errorf("%s: %w", field, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("%s must be 32 bytes, got %d", field, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func writeResult(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}

// writeEngineError maps a core error onto an HTTP status and a stable error
// code. Persistence failures map to 500 with their own code: the outcome is
// indeterminate and the client must re-query rather than retry.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var limitErr *ratelimit.LimitExceededError
	if errors.As(err, &limitErr) {
		metrics.Core().ObserveRateLimited(limitErr.Kind)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error":   "rate_limit_exceeded",
			"message": limitErr.Error(),
			"resetAt": limitErr.ResetAt,
		})
		return
	}

	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, common.ErrPersistence):
		status, code = http.StatusInternalServerError, "persistence_failure"
	case errors.Is(err, access.ErrUnauthorized),
		errors.Is(err, registry.ErrUnauthorized),
		errors.Is(err, payments.ErrUnauthorized):
		status, code = http.StatusForbidden, "unauthorized"
	case errors.Is(err, multisig.ErrOnlyAuthority):
		status, code = http.StatusForbidden, "only_authority"
	case errors.Is(err, registry.ErrProductNotFound),
		errors.Is(err, payments.ErrPaymentNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, registry.ErrInvalidState),
		errors.Is(err, payments.ErrInvalidState):
		status, code = http.StatusConflict, "invalid_state"
	case errors.Is(err, registry.ErrNoCommitment):
		status, code = http.StatusConflict, "no_commitment"
	case errors.Is(err, registry.ErrRevealTooEarly):
		status, code = http.StatusConflict, "reveal_too_early"
	case errors.Is(err, registry.ErrCommitmentExpired):
		status, code = http.StatusConflict, "commitment_expired"
	case errors.Is(err, registry.ErrInvalidReveal):
		status, code = http.StatusConflict, "invalid_reveal"
	case errors.Is(err, payments.ErrTooEarly):
		status, code = http.StatusConflict, "too_early"
	case errors.Is(err, payments.ErrGracePeriodExpired):
		status, code = http.StatusConflict, "grace_period_expired"
	case errors.Is(err, common.ErrModulePaused):
		status, code = http.StatusConflict, "paused"
	case errors.Is(err, multisig.ErrAuthorityNotSet):
		status, code = http.StatusConflict, "authority_not_set"
	case errors.Is(err, registry.ErrInvalidInput),
		errors.Is(err, registry.ErrInvalidRecipient),
		errors.Is(err, access.ErrUnknownRole),
		errors.Is(err, payments.ErrInvalidAmount),
		errors.Is(err, payments.ErrInvalidReleaseTime),
		errors.Is(err, payments.ErrInvalidPayee),
		errors.Is(err, payments.ErrSameParty),
		errors.Is(err, payments.ErrInvalidOrderRef),
		errors.Is(err, payments.ErrInvalidFee),
		errors.Is(err, payments.ErrInvalidWallet),
		errors.Is(err, multisig.ErrInvalidAddress):
		status, code = http.StatusBadRequest, "invalid_input"
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("operation failed", slog.Any("error", err))
	}
	writeError(w, status, code, err.Error())
}

func (s *Server) observe(module, op string, err error) {
	metrics.Core().ObserveOperation(module, op, err)
}
