package multisig

import (
	"errors"

	"agrichain/crypto"
	"agrichain/native/common"
)

var (
	// ErrOnlyAuthority is returned when the caller is not allowed to execute
	// an administrative operation: while the gate is enabled that means
	// anyone but the designated authority, while disabled anyone but the
	// default administrator.
	ErrOnlyAuthority = errors.New("multisig gate: only the designated authority may execute")
	// ErrInvalidAddress rejects the zero identity as an authority.
	ErrInvalidAddress = errors.New("multisig gate: invalid authority address")
	// ErrAuthorityNotSet rejects enabling the gate before an authority is
	// configured.
	ErrAuthorityNotSet = errors.New("multisig gate: authority not set")

	errNilState = errors.New("multisig gate: state not configured")
)

// Config is the durable gate state.
type Config struct {
	Authority [20]byte
	Enabled   bool
}

type gateState interface {
	MultiSigConfigGet() (Config, bool, error)
	MultiSigConfigPut(Config) error
}

// Gate holds the optional designated authority for administrative operations.
// Admin methods elsewhere call Authorize first, so flipping Enabled tightens
// every gated operation without touching their individual logic.
type Gate struct {
	state gateState
	admin [20]byte
}

// NewGate creates a gate whose default administrator is admin. While the gate
// is disabled, admin is the only identity Authorize accepts.
func NewGate(admin [20]byte) *Gate {
	return &Gate{admin: admin}
}

// SetState configures the state backend used by the gate.
func (g *Gate) SetState(state gateState) { g.state = state }

// Admin returns the default administrator identity.
func (g *Gate) Admin() [20]byte { return g.admin }

func (g *Gate) load() (Config, error) {
	if g == nil || g.state == nil {
		return Config{}, errNilState
	}
	cfg, ok, err := g.state.MultiSigConfigGet()
	if err != nil {
		return Config{}, common.WrapPersist(err)
	}
	if !ok {
		return Config{}, nil
	}
	return cfg, nil
}

// Config returns the current gate configuration for queries.
func (g *Gate) Config() (Config, error) {
	return g.load()
}

// Authorize reports whether caller may execute an administrative operation.
func (g *Gate) Authorize(caller [20]byte) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if cfg.Enabled {
		if caller != cfg.Authority {
			return ErrOnlyAuthority
		}
		return nil
	}
	if caller != g.admin {
		return ErrOnlyAuthority
	}
	return nil
}

// SetAuthority configures the designated authority. The caller must itself
// pass Authorize, so while the gate is enabled only the current authority can
// hand the gate to a new one.
func (g *Gate) SetAuthority(caller [20]byte, authority [20]byte) error {
	if err := g.Authorize(caller); err != nil {
		return err
	}
	if authority == crypto.ZeroAddress {
		return ErrInvalidAddress
	}
	cfg, err := g.load()
	if err != nil {
		return err
	}
	cfg.Authority = authority
	return common.WrapPersist(g.state.MultiSigConfigPut(cfg))
}

// SetEnabled switches the gate on or off. Enabling requires an authority to
// have been configured first.
func (g *Gate) SetEnabled(caller [20]byte, enabled bool) error {
	if err := g.Authorize(caller); err != nil {
		return err
	}
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if enabled && cfg.Authority == crypto.ZeroAddress {
		return ErrAuthorityNotSet
	}
	cfg.Enabled = enabled
	return common.WrapPersist(g.state.MultiSigConfigPut(cfg))
}
