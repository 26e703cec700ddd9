package items

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/averdin/gamebots/internal/game"
)

// File serves game items from a JSON instances file: a flat array of items,
// grid rounds with "grids" and "target_grid", word rounds with "target_word"
// and an optional "clue". Each new room plays the first n items.
type File struct {
	items []game.GameItem
}

var _ game.ItemSource = (*File)(nil)

var ErrNoItems = errors.New("instances file holds no items")

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instances file: %w", err)
	}
	var items []game.GameItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse instances file %s: %w", path, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoItems, path)
	}
	return &File{items: items}, nil
}

// Load returns a copy of the first n items; n outside the valid range means
// all of them.
func (f *File) Load(n int) ([]game.GameItem, error) {
	if n <= 0 || n > len(f.items) {
		n = len(f.items)
	}
	out := make([]game.GameItem, n)
	copy(out, f.items[:n])
	return out, nil
}

// Count reports how many items the file holds.
func (f *File) Count() int { return len(f.items) }
