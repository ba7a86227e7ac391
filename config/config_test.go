package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agrichain/crypto"
)

func testAddress(fill byte) string {
	var raw [20]byte
	for i := range raw {
		raw[i] = fill
	}
	return crypto.MustAddress(raw).String()
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.AdminAddress = testAddress(0x01)
	return cfg
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":8645" {
		t.Fatalf("unexpected default rpc address %q", cfg.RPCAddress)
	}
	if cfg.Limits.ProductRegistrationPerDay != 50 || cfg.Limits.PaymentCreationPerDay != 20 {
		t.Fatalf("unexpected default limits %+v", cfg.Limits)
	}
	if cfg.Commitments.RevealDelaySeconds != 300 || cfg.Commitments.ExpiryWindowSeconds != 3_600 {
		t.Fatalf("unexpected default commitment windows %+v", cfg.Commitments)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}
}

func TestLoadRoundtripsPersistedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	want := validConfig()
	want.RPCAddress = ":9000"
	want.Limits.ProductRegistrationPerDay = 10
	want.Payments.PlatformFeeBps = 150
	if err := persist(path, want); err != nil {
		t.Fatalf("persist: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.RPCAddress != ":9000" || got.Limits.ProductRegistrationPerDay != 10 {
		t.Fatalf("roundtrip lost fields: %+v", got)
	}
	if got.Payments.PlatformFeeBps != 150 {
		t.Fatalf("roundtrip lost fee: %d", got.Payments.PlatformFeeBps)
	}
	if got.AdminAddress != want.AdminAddress {
		t.Fatalf("roundtrip lost admin address")
	}
}

func TestValidateRejectsMissingAdmin(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing admin address")
	}
}

func TestValidateRejectsMalformedAddresses(t *testing.T) {
	cfg := validConfig()
	cfg.AdminAddress = "not-an-address"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "AdminAddress") {
		t.Fatalf("expected AdminAddress error, got %v", err)
	}

	cfg = validConfig()
	cfg.Payments.PlatformWallet = "nope"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "PlatformWallet") {
		t.Fatalf("expected PlatformWallet error, got %v", err)
	}
}

func TestValidateRejectsEnabledGateWithoutAuthority(t *testing.T) {
	cfg := validConfig()
	cfg.MultiSig.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for enabled gate without authority")
	}
	cfg.MultiSig.Authority = testAddress(0x02)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejectsInvertedCommitmentWindows(t *testing.T) {
	cfg := validConfig()
	cfg.Commitments.RevealDelaySeconds = 3_600
	cfg.Commitments.ExpiryWindowSeconds = 300
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for reveal delay above expiry window")
	}
}

func TestValidateRejectsOutOfRangeFee(t *testing.T) {
	cfg := validConfig()
	cfg.Payments.PlatformFeeBps = 10_001
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for fee above 100%%")
	}
}

func TestAdminParsesConfiguredAddress(t *testing.T) {
	cfg := validConfig()
	admin, err := cfg.Admin()
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	want, err := crypto.DecodeAddress(cfg.AdminAddress)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if admin != want.Array() {
		t.Fatalf("admin address mismatch")
	}
}
