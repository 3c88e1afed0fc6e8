package gxterminal

// history is a bounded, ordered command history. Consecutive duplicates are
// collapsed and the oldest entries are dropped when the limit is reached.
type history struct {
	limit int
	items []string
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &history{limit: limit}
}

// add appends the entry unless it is empty or equals the most recent one.
func (h *history) add(entry string) {
	if entry == "" {
		return
	}
	if n := len(h.items); n > 0 && h.items[n-1] == entry {
		return
	}
	h.items = append(h.items, entry)
	if len(h.items) > h.limit {
		h.items = h.items[len(h.items)-h.limit:]
	}
}

// at returns the stored entry verbatim. An out of range index is an error,
// not a clamp.
func (h *history) at(index int) (string, error) {
	if index < 0 || index >= len(h.items) {
		return "", &SessionError{Op: "history", Err: ErrHistoryIndex}
	}
	return h.items[index], nil
}

// list returns a copy, most recently added last.
func (h *history) list() []string {
	return append([]string(nil), h.items...)
}
