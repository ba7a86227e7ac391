package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"agrichain/crypto"
)

// Limits tunes the per-actor rolling-window quotas.
type Limits struct {
	ProductRegistrationPerDay uint32 `toml:"ProductRegistrationPerDay"`
	PaymentCreationPerDay     uint32 `toml:"PaymentCreationPerDay"`
	WindowSeconds             int64  `toml:"WindowSeconds"`
}

// Commitments tunes the price commit-reveal protocol windows.
type Commitments struct {
	RevealDelaySeconds  int64 `toml:"RevealDelaySeconds"`
	ExpiryWindowSeconds int64 `toml:"ExpiryWindowSeconds"`
}

// Payments tunes the escrow engine.
type Payments struct {
	PlatformFeeBps     uint32 `toml:"PlatformFeeBps"`
	GracePeriodSeconds int64  `toml:"GracePeriodSeconds"`
	PlatformWallet     string `toml:"PlatformWallet"`
}

// MultiSig optionally presets the administrative gate at startup.
type MultiSig struct {
	Authority string `toml:"Authority"`
	Enabled   bool   `toml:"Enabled"`
}

type Config struct {
	RPCAddress   string      `toml:"RPCAddress"`
	DataDir      string      `toml:"DataDir"`
	Env          string      `toml:"Env"`
	AdminAddress string      `toml:"AdminAddress"`
	Limits       Limits      `toml:"Limits"`
	Commitments  Commitments `toml:"Commitments"`
	Payments     Payments    `toml:"Payments"`
	MultiSig     MultiSig    `toml:"MultiSig"`
}

func defaultConfig() *Config {
	return &Config{
		RPCAddress: ":8645",
		DataDir:    "./data",
		Limits: Limits{
			ProductRegistrationPerDay: 50,
			PaymentCreationPerDay:     20,
			WindowSeconds:             86_400,
		},
		Commitments: Commitments{
			RevealDelaySeconds:  300,
			ExpiryWindowSeconds: 3_600,
		},
		Payments: Payments{
			PlatformFeeBps:     200,
			GracePeriodSeconds: 3_600,
		},
	}
}

// Load reads the configuration from path. A missing file produces the
// defaults and persists them so operators have a file to edit.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks address fields and tunable bounds.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AdminAddress) == "" {
		return fmt.Errorf("AdminAddress must be set")
	}
	if _, err := crypto.DecodeAddress(c.AdminAddress); err != nil {
		return fmt.Errorf("AdminAddress: %w", err)
	}
	if wallet := strings.TrimSpace(c.Payments.PlatformWallet); wallet != "" {
		if _, err := crypto.DecodeAddress(wallet); err != nil {
			return fmt.Errorf("Payments.PlatformWallet: %w", err)
		}
	}
	if authority := strings.TrimSpace(c.MultiSig.Authority); authority != "" {
		if _, err := crypto.DecodeAddress(authority); err != nil {
			return fmt.Errorf("MultiSig.Authority: %w", err)
		}
	} else if c.MultiSig.Enabled {
		return fmt.Errorf("MultiSig.Enabled requires MultiSig.Authority")
	}
	if c.Limits.WindowSeconds <= 0 {
		return fmt.Errorf("Limits.WindowSeconds must be positive")
	}
	if c.Commitments.RevealDelaySeconds <= 0 || c.Commitments.ExpiryWindowSeconds <= 0 {
		return fmt.Errorf("commitment windows must be positive")
	}
	if c.Commitments.RevealDelaySeconds >= c.Commitments.ExpiryWindowSeconds {
		return fmt.Errorf("Commitments.RevealDelaySeconds must be below ExpiryWindowSeconds")
	}
	if c.Payments.PlatformFeeBps > 10_000 {
		return fmt.Errorf("Payments.PlatformFeeBps out of range")
	}
	return nil
}

// Admin returns the parsed default administrator identity.
func (c *Config) Admin() ([20]byte, error) {
	addr, err := crypto.DecodeAddress(c.AdminAddress)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Array(), nil
}

func createDefault(path string) (*Config, error) {
	cfg := defaultConfig()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
