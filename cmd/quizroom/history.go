package main

import "fmt"

// history keeps the last limit notices so a long-running session never
// grows its log without bound.
type history struct {
	limit int
	items []string
}

func newHistory(limit int) *history {
	return &history{limit: limit}
}

func (h *history) add(line string) {
	h.items = append(h.items, line)
	if len(h.items) > h.limit {
		h.items = h.items[len(h.items)-h.limit:]
	}
}

func (h *history) dump() {
	if len(h.items) == 0 {
		fmt.Println("(no notices yet)")
		return
	}
	for _, line := range h.items {
		fmt.Println(line)
	}
}
