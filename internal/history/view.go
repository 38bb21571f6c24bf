package history

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"go.klb.dev/recall/internal/item"
)

// Items returns the history in stored order, newest first.
func (s *Store) Items() []item.Item {
	return slices.Clone(*s.snap.Load())
}

// Len returns the number of items.
func (s *Store) Len() int { return len(*s.snap.Load()) }

// Get returns the item with the given id.
func (s *Store) Get(id string) (item.Item, bool) {
	cur := *s.snap.Load()
	if i := indexOf(cur, id); i >= 0 {
		return cur[i], true
	}
	return item.Item{}, false
}

// Display returns the history in display order: pinned items first, each
// group in stored order.
func (s *Store) Display() []item.Item {
	return DisplayOrder(*s.snap.Load())
}

// DisplayOrder sorts a copy of items pinned-first, keeping stored order
// within each group.
func DisplayOrder(items []item.Item) []item.Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b item.Item) int {
		switch {
		case a.IsPinned == b.IsPinned:
			return 0
		case a.IsPinned:
			return -1
		default:
			return 1
		}
	})
	return out
}

// Search returns the items in display order whose content, display name or
// type fuzzily matches query, ignoring case and diacritics. An empty query
// matches everything.
func (s *Store) Search(query string) []item.Item {
	items := s.Display()
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}
	return slices.DeleteFunc(items, func(it item.Item) bool { return !Match(it, query) })
}

// Match reports whether it matches a search query.
func Match(it item.Item, query string) bool {
	return fuzzy.MatchNormalizedFold(query, it.Content) ||
		fuzzy.MatchNormalizedFold(query, it.DisplayName()) ||
		strings.EqualFold(query, string(it.Type))
}

// logCapture logs a captured item at INFO (type and size) and DEBUG (text
// preview up to 120 runes).
func logCapture(log *slog.Logger, it item.Item) {
	log.Info("clipboard captured", "id", it.ID, "type", it.Type, "size_bytes", it.Size())
	if !log.Enabled(context.Background(), slog.LevelDebug) || it.IsImage() {
		return
	}
	log.Debug("clipboard item", "type", it.Type, "preview", item.Preview(it.Content, 120))
}
