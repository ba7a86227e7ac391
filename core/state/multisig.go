package state

import "agrichain/native/multisig"

type storedMultiSigConfig struct {
	Authority [20]byte
	Enabled   bool
}

// MultiSigConfigGet loads the gate configuration. The middle return is false
// when no authority has ever been configured.
func (m *Manager) MultiSigConfigGet() (multisig.Config, bool, error) {
	var stored storedMultiSigConfig
	ok, err := m.getRecord(multisigConfigKey, &stored)
	if err != nil || !ok {
		return multisig.Config{}, false, err
	}
	return multisig.Config{Authority: stored.Authority, Enabled: stored.Enabled}, true, nil
}

// MultiSigConfigPut stores the gate configuration.
func (m *Manager) MultiSigConfigPut(cfg multisig.Config) error {
	return m.putRecord(multisigConfigKey, &storedMultiSigConfig{
		Authority: cfg.Authority,
		Enabled:   cfg.Enabled,
	})
}
