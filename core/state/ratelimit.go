package state

import (
	"math/big"

	"agrichain/native/ratelimit"
)

type storedRateWindow struct {
	Count       uint32
	WindowStart *big.Int
}

func rateWindowKey(actor [20]byte, kind string) []byte {
	suffix := make([]byte, 0, len(kind)+1+len(actor))
	suffix = append(suffix, kind...)
	suffix = append(suffix, '/')
	suffix = append(suffix, actor[:]...)
	return prefixedKey(rateWindowPrefix, suffix)
}

// RateWindowGet loads the (actor, kind) counter window. The middle return is
// false when the actor has never performed the action.
func (m *Manager) RateWindowGet(actor [20]byte, kind string) (ratelimit.Window, bool, error) {
	var stored storedRateWindow
	ok, err := m.getRecord(rateWindowKey(actor, kind), &stored)
	if err != nil || !ok {
		return ratelimit.Window{}, false, err
	}
	window := ratelimit.Window{Count: stored.Count}
	if stored.WindowStart != nil {
		window.WindowStart = stored.WindowStart.Int64()
	}
	return window, true, nil
}

// RateWindowPut stores the (actor, kind) counter window.
func (m *Manager) RateWindowPut(actor [20]byte, kind string, w ratelimit.Window) error {
	return m.putRecord(rateWindowKey(actor, kind), &storedRateWindow{
		Count:       w.Count,
		WindowStart: big.NewInt(w.WindowStart),
	})
}
