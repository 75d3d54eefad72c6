package detector

import (
	"sync"
	"time"

	"volume-spike-detector/src/models"
)

// SymbolStateStore tracks the last seen volume and price per symbol for one
// streaming session. Volume, price and last alert time share one mutex.
type SymbolStateStore struct {
	mu     sync.Mutex
	states map[string]*models.MSymbolState
}

// -----------------------------------------------------------------------------

func NewSymbolStateStore() *SymbolStateStore {
	return &SymbolStateStore{states: make(map[string]*models.MSymbolState)}
}

// -----------------------------------------------------------------------------

// Observe records (price, cumulativeVolume) as current and returns the values
// that were current before the call. The first observation of a symbol
// returns its own values, giving a zero delta.
func (s *SymbolStateStore) Observe(symbol string, price float64, cumulativeVolume int64) (int64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[symbol]
	if !ok {
		s.states[symbol] = &models.MSymbolState{
			Symbol:     symbol,
			LastVolume: cumulativeVolume,
			LastPrice:  price,
		}
		return cumulativeVolume, price
	}

	prevVolume, prevPrice := st.LastVolume, st.LastPrice
	st.LastVolume = cumulativeVolume
	st.LastPrice = price
	return prevVolume, prevPrice
}

// -----------------------------------------------------------------------------

// TryMarkAlert sets the symbol's last alert time to now unless an alert fired
// less than cooldown ago. It reports whether the alert may go out.
func (s *SymbolStateStore) TryMarkAlert(symbol string, now time.Time, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[symbol]
	if !ok {
		st = &models.MSymbolState{Symbol: symbol}
		s.states[symbol] = st
	}

	if !st.LastAlertAt.IsZero() && now.Sub(st.LastAlertAt) < cooldown {
		return false
	}
	st.LastAlertAt = now
	return true
}

// -----------------------------------------------------------------------------

// Get returns a copy of the symbol's state.
func (s *SymbolStateStore) Get(symbol string) (models.MSymbolState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[symbol]
	if !ok {
		return models.MSymbolState{}, false
	}
	return *st, true
}

// -----------------------------------------------------------------------------

func (s *SymbolStateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
