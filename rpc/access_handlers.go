package rpc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"agrichain/native/access"
)

type roleRequest struct {
	Caller string `json:"caller"`
	Actor  string `json:"actor"`
	Role   string `json:"role"`
}

type actorRequest struct {
	Caller string `json:"caller"`
	Actor  string `json:"actor"`
}

func (s *Server) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	s.roleMutation(w, r, "grantRole", func(caller, actor [20]byte, role access.Role) error {
		return s.access.GrantRole(caller, actor, role)
	})
}

func (s *Server) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	s.roleMutation(w, r, "revokeRole", func(caller, actor [20]byte, role access.Role) error {
		return s.access.RevokeRole(caller, actor, role)
	})
}

func (s *Server) roleMutation(w http.ResponseWriter, r *http.Request, op string, apply func(caller, actor [20]byte, role access.Role) error) {
	var req roleRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	actor, err := parseAddr("actor", req.Actor)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.Lock()
	err = apply(caller, actor, access.Role(req.Role))
	s.mu.Unlock()
	s.observe("access", op, err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeResult(w, map[string]string{"status": "ok"})
}

func (s *Server) handleVerifyUser(w http.ResponseWriter, r *http.Request) {
	s.actorMutation(w, r, "verifyUser", s.access.VerifyUser)
}

func (s *Server) handleApproveKYC(w http.ResponseWriter, r *http.Request) {
	s.actorMutation(w, r, "approveKYC", s.access.ApproveKYC)
}

func (s *Server) handleRejectKYC(w http.ResponseWriter, r *http.Request) {
	s.actorMutation(w, r, "rejectKYC", s.access.RejectKYC)
}

func (s *Server) actorMutation(w http.ResponseWriter, r *http.Request, op string, apply func(caller, actor [20]byte) error) {
	var req actorRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	actor, err := parseAddr("actor", req.Actor)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.Lock()
	err = apply(caller, actor)
	s.mu.Unlock()
	s.observe("access", op, err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeResult(w, map[string]string{"status": "ok"})
}

func (s *Server) handleActorStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := parseAddr("addr", chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	s.mu.RLock()
	roles := make([]string, 0, 4)
	for _, role := range []access.Role{access.RoleFarmer, access.RoleDistributor, access.RoleRetailer, access.RoleAdmin} {
		if s.access.HasRole(actor, role) {
			roles = append(roles, string(role))
		}
	}
	verification := s.access.Verification(actor)
	s.mu.RUnlock()
	writeResult(w, map[string]interface{}{
		"roles":            roles,
		"identityVerified": verification.IdentityVerified,
		"kycStatus":        verification.KYC.String(),
		"eligible":         verification.Eligible(),
	})
}
