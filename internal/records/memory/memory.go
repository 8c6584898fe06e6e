package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"cashbox/internal/core"
	"cashbox/internal/records"
)

// SeedFileName is looked up inside the data directory by NewFromFiles.
const SeedFileName = "seed_currencies.yaml"

type Store struct {
	mu    sync.Mutex
	order []string
	items map[string]core.CurrencyRecord
}

type seedFile struct {
	Currencies []seedCurrency `yaml:"currencies"`
}

type seedCurrency struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	CashedOut   bool   `yaml:"cashed_out"`
	FinalAmount string `yaml:"final_amount"`
}

func New(recs []core.CurrencyRecord) *Store {
	s := &Store{items: make(map[string]core.CurrencyRecord, len(recs))}
	for _, r := range recs {
		if _, ok := s.items[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		s.items[r.ID] = r
	}
	return s
}

// NewFromFiles seeds the store from base/seed_currencies.yaml, falling back to
// a few demo currencies when the file is missing or empty.
func NewFromFiles(base string) (*Store, error) {
	recs, err := readSeed(filepath.Join(base, SeedFileName))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		recs = []core.CurrencyRecord{
			{ID: "87f973b1-16cf-4898-afce-893ed40cdd45", Name: "Doubloon"},
			{ID: "739c42bd-43c7-4746-9b36-985b1fd38a69", Name: "Ducat"},
			{ID: "e8fe1d84-27dd-4045-aa78-704ce03cfb5c", Name: "Florin"},
		}
	}
	return New(recs), nil
}

// ListCurrencies returns the records in seed order.
func (s *Store) ListCurrencies(_ context.Context) ([]core.CurrencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.CurrencyRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clone(s.items[id]))
	}
	return out, nil
}

func (s *Store) UpdateCurrency(_ context.Context, id string, u core.CurrencyUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", records.ErrNotFound, id)
	}
	if err := u.CheckWriteOnce(r); err != nil {
		return err
	}
	s.items[id] = u.Apply(r)
	return nil
}

func clone(r core.CurrencyRecord) core.CurrencyRecord {
	if r.FinalAmount != nil {
		amount := *r.FinalAmount
		r.FinalAmount = &amount
	}
	return r
}

func readSeed(path string) ([]core.CurrencyRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var sf seedFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	out := make([]core.CurrencyRecord, 0, len(sf.Currencies))
	for _, c := range sf.Currencies {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			id = uuid.NewString()
		}
		amount, err := core.ParseAmount(c.FinalAmount)
		if err != nil {
			return nil, fmt.Errorf("seed currency %s: %w", id, err)
		}
		out = append(out, core.CurrencyRecord{ID: id, Name: c.Name, CashedOut: c.CashedOut, FinalAmount: amount})
	}
	return out, nil
}
