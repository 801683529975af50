package items

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hakimbdev/items-api/internal/constants"
	"github.com/jonboulle/clockwork"
)

// Query selects a page of items.
type Query struct {
	Search string // case-insensitive substring match on name
	Page   int    // 1-based
	Limit  int
}

// Page is one slice of a List result.
type Page struct {
	Items      []Item `json:"items"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}

// Store reads and rewrites the items file. Every mutation is a whole-file
// rewrite; the last writer wins.
type Store struct {
	path  string
	clock clockwork.Clock

	// serialises read-modify-write within this process
	writeMu sync.Mutex
}

// NewStore creates a store backed by the JSON file at path.
func NewStore(path string) *Store {
	return NewStoreWithClock(path, clockwork.NewRealClock())
}

// NewStoreWithClock is NewStore with an explicit clock for ID generation.
func NewStoreWithClock(path string, clock clockwork.Clock) *Store {
	return &Store{path: path, clock: clock}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and parses the whole file.
func (s *Store) Load(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}

	var list []Item
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse items file: %w", err)
	}
	if list == nil {
		list = []Item{}
	}

	return list, nil
}

// Save serialises items and replaces the file contents.
func (s *Store) Save(ctx context.Context, list []Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if list == nil {
		list = []Item{}
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, constants.DataFileMode); err != nil {
		return fmt.Errorf("failed to write items file: %w", err)
	}

	return nil
}

// Init creates an empty items file if none exists.
func (s *Store) Init(ctx context.Context) error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat items file: %w", err)
	}
	return s.Save(ctx, nil)
}

// List returns the page of items matching q.
func (s *Store) List(ctx context.Context, q Query) (*Page, error) {
	all, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	matched := all
	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		matched = make([]Item, 0, len(all))
		for _, it := range all {
			if strings.Contains(strings.ToLower(it.Name), search) {
				matched = append(matched, it)
			}
		}
	}

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = constants.DefaultItemsPerPage
	}

	total := len(matched)
	offset := (page - 1) * limit
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return &Page{
		Items:      matched[offset:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// Get returns the item with the given ID.
func (s *Store) Get(ctx context.Context, id int64) (*Item, error) {
	all, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
}

// Create validates n, appends it with a fresh ID and rewrites the file.
func (s *Store) Create(ctx context.Context, n NewItem) (*Item, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	all, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	item := Item{
		ID:       s.nextID(all),
		Name:     n.Name,
		Category: n.Category,
		Price:    n.Price,
	}

	if err := s.Save(ctx, append(all, item)); err != nil {
		return nil, err
	}

	return &item, nil
}

// nextID uses the creation time in milliseconds, bumped past the current
// maximum when two items land in the same millisecond.
func (s *Store) nextID(existing []Item) int64 {
	id := s.clock.Now().UnixMilli()
	for _, it := range existing {
		if it.ID >= id {
			id = it.ID + 1
		}
	}
	return id
}
