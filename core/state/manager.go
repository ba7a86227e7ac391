package state

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"agrichain/storage"
)

// Manager is the durable state layer shared by every native engine. All
// records are RLP-encoded under prefixed keys in a storage.Database so that
// roles, verification records, rate windows, products, commitments, payments
// and the multisig configuration survive a process restart with their
// invariants intact.
//
// The manager serializes its own mutations with a single mutex; it relies on
// the operation layer above it to keep each public operation fully ordered
// with respect to every other one.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func prefixedKey(prefix []byte, suffix []byte) []byte {
	key := make([]byte, 0, len(prefix)+len(suffix))
	key = append(key, prefix...)
	key = append(key, suffix...)
	return key
}

func addrKey(prefix []byte, addr [20]byte) []byte {
	return prefixedKey(prefix, addr[:])
}

func idKey(prefix []byte, id uint64) []byte {
	var suffix [8]byte
	binary.BigEndian.PutUint64(suffix[:], id)
	return prefixedKey(prefix, suffix[:])
}

// getRecord decodes the value stored under key into out. The middle return is
// false when no record exists.
func (m *Manager) getRecord(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", string(key), err)
	}
	return true, nil
}

func (m *Manager) putRecord(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", string(key), err)
	}
	return m.db.Put(key, encoded)
}

// nextSequence increments and persists the monotonic counter stored under
// key. The first call returns 1.
func (m *Manager) nextSequence(key []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current uint64
	if _, err := m.getRecord(key, &current); err != nil {
		return 0, err
	}
	next := current + 1
	if err := m.putRecord(key, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (m *Manager) sequence(key []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current uint64
	if _, err := m.getRecord(key, &current); err != nil {
		return 0, err
	}
	return current, nil
}

// --- roles ---

func roleKey(role string) []byte {
	return prefixedKey(rolePrefix, []byte(role))
}

func (m *Manager) roleMembers(role string) ([][]byte, error) {
	var members [][]byte
	if _, err := m.getRecord(roleKey(role), &members); err != nil {
		return nil, err
	}
	return members, nil
}

// RoleGrant associates addr with role. Duplicate assignments are ignored
// while the stored list remains sorted for determinism.
func (m *Manager) RoleGrant(role string, addr [20]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, err := m.roleMembers(role)
	if err != nil {
		return err
	}
	for _, existing := range members {
		if bytes.Equal(existing, addr[:]) {
			return nil
		}
	}
	members = append(members, append([]byte(nil), addr[:]...))
	sort.Slice(members, func(i, j int) bool {
		return hex.EncodeToString(members[i]) < hex.EncodeToString(members[j])
	})
	return m.putRecord(roleKey(role), members)
}

// RoleRevoke removes addr from role. Revoking an absent member is a no-op.
func (m *Manager) RoleRevoke(role string, addr [20]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, err := m.roleMembers(role)
	if err != nil {
		return err
	}
	kept := members[:0]
	for _, existing := range members {
		if !bytes.Equal(existing, addr[:]) {
			kept = append(kept, existing)
		}
	}
	return m.putRecord(roleKey(role), kept)
}

// HasRole reports whether addr is associated with role. Errors while reading
// the underlying state read as false, matching the fail-closed semantics
// required by the callers.
func (m *Manager) HasRole(role string, addr [20]byte) bool {
	members, err := m.roleMembers(role)
	if err != nil {
		return false
	}
	for _, member := range members {
		if bytes.Equal(member, addr[:]) {
			return true
		}
	}
	return false
}
