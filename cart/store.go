// Package cart holds the shopping cart: an ordered list of lines keyed by
// item kind and id, persisted in full after every mutation.
package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go-storefront/models"

	"github.com/shopspring/decimal"
)

// DefaultKey is the well-known key a single-session cart persists under.
const DefaultKey = "cart"

// SchemaVersion is written into every persisted envelope.
const SchemaVersion = 1

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Persister is the durable keyed storage behind a cart. Load returns nil
// data and no error when nothing has been saved under key.
type Persister interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Delete(key string) error
}

type envelope struct {
	Version int               `json:"version"`
	Lines   []models.CartLine `json:"lines"`
}

// Store owns the cart lines of one shopper. It is not safe for concurrent
// use; callers serialize access.
type Store struct {
	key       string
	persister Persister
	logger    *slog.Logger
	lines     []models.CartLine
}

// NewStore rehydrates the cart saved under key. Unreadable or unparseable
// state is logged and replaced by an empty cart.
func NewStore(persister Persister, key string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if key == "" {
		key = DefaultKey
	}
	s := &Store{key: key, persister: persister, logger: logger}
	s.lines = s.load()
	return s
}

func (s *Store) load() []models.CartLine {
	if s.persister == nil {
		return nil
	}
	data, err := s.persister.Load(s.key)
	if err != nil {
		s.logger.Warn("Failed to read persisted cart", slog.String("key", s.key), slog.String("error", err.Error()))
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	lines, err := decode(data)
	if err != nil {
		s.logger.Warn("Discarding unreadable persisted cart", slog.String("key", s.key), slog.String("error", err.Error()))
		return nil
	}
	return sanitize(lines)
}

func decode(data []byte) ([]models.CartLine, error) {
	data = bytes.TrimSpace(data)
	// Carts written before the envelope existed are a bare array.
	if data[0] == '[' {
		var lines []models.CartLine
		if err := json.Unmarshal(data, &lines); err != nil {
			return nil, fmt.Errorf("decode legacy cart: %w", err)
		}
		return lines, nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if env.Version < 1 || env.Version > SchemaVersion {
		return nil, fmt.Errorf("unsupported cart schema version %d", env.Version)
	}
	return env.Lines, nil
}

func sanitize(lines []models.CartLine) []models.CartLine {
	out := make([]models.CartLine, 0, len(lines))
	seen := make(map[string]int, len(lines))
	for _, line := range lines {
		if line.Key == "" || line.Quantity < 1 {
			continue
		}
		if i, ok := seen[line.Key]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		seen[line.Key] = len(out)
		out = append(out, line)
	}
	return out
}

func (s *Store) persist() {
	if s.persister == nil {
		return
	}
	data, err := json.Marshal(envelope{Version: SchemaVersion, Lines: s.lines})
	if err != nil {
		s.logger.Warn("Failed to encode cart", slog.String("key", s.key), slog.String("error", err.Error()))
		return
	}
	if err := s.persister.Save(s.key, data); err != nil {
		s.logger.Warn("Failed to persist cart", slog.String("key", s.key), slog.String("error", err.Error()))
	}
}

// Add puts quantity units of item in the cart. A repeat add of the same
// key increments the existing line; stock is not checked here.
func (s *Store) Add(item models.CartItem, quantity int) (models.CartLine, error) {
	if quantity < 1 {
		return models.CartLine{}, ErrInvalidQuantity
	}
	if err := item.Validate(); err != nil {
		return models.CartLine{}, err
	}

	key := item.Key()
	if i := s.index(key); i >= 0 {
		s.lines[i].Quantity += quantity
		s.persist()
		return s.lines[i], nil
	}

	line := models.CartLine{
		Key:               key,
		Name:              item.Name(),
		UnitPrice:         item.UnitPrice(),
		OriginalUnitPrice: item.OriginalUnitPrice(),
		Image:             item.Image(),
		Quantity:          quantity,
		Item:              item,
	}
	s.lines = append(s.lines, line)
	s.persist()
	return line, nil
}

// Remove deletes the line with key. It reports whether a line was removed.
func (s *Store) Remove(key string) bool {
	i := s.index(key)
	if i < 0 {
		return false
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.persist()
	return true
}

// SetQuantity overwrites a line's quantity; n <= 0 removes the line.
func (s *Store) SetQuantity(key string, n int) bool {
	if n <= 0 {
		return s.Remove(key)
	}
	i := s.index(key)
	if i < 0 {
		return false
	}
	s.lines[i].Quantity = n
	s.persist()
	return true
}

// Clear empties the cart and drops its persisted state.
func (s *Store) Clear() {
	s.lines = nil
	if s.persister == nil {
		return
	}
	if err := s.persister.Delete(s.key); err != nil {
		s.logger.Warn("Failed to clear persisted cart", slog.String("key", s.key), slog.String("error", err.Error()))
	}
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []models.CartLine {
	out := make([]models.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Line returns the line stored under key.
func (s *Store) Line(key string) (models.CartLine, bool) {
	if i := s.index(key); i >= 0 {
		return s.lines[i], true
	}
	return models.CartLine{}, false
}

// Len returns the number of distinct lines.
func (s *Store) Len() int {
	return len(s.lines)
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	return len(s.lines) == 0
}

// Count returns the sum of quantities over all lines.
func (s *Store) Count() int {
	n := 0
	for _, line := range s.lines {
		n += line.Quantity
	}
	return n
}

// Total returns the sum of unit price times quantity over all lines.
func (s *Store) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// Savings returns the sum of (original - current) * quantity over all lines.
func (s *Store) Savings() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.LineSavings())
	}
	return total
}

func (s *Store) index(key string) int {
	for i, line := range s.lines {
		if line.Key == key {
			return i
		}
	}
	return -1
}
