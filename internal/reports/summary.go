package reports

import "sort"

type StatusEntry struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type PriorityEntry struct {
	Priority string `json:"priority"`
	Count    int    `json:"count"`
}

type Summary struct {
	ByStatus   []StatusEntry   `json:"by_status"`
	ByPriority []PriorityEntry `json:"by_priority"`
	Total      int             `json:"total"`
}

// Summarize builds both frequency tables in a single pass over
// (status, priority) rows. Entries are ordered lexicographically by key, not
// by insertion, so the same input always serializes identically.
func Summarize(rows [][2]string) Summary {
	byStatus := make(map[string]int)
	byPriority := make(map[string]int)

	for _, row := range rows {
		byStatus[row[0]]++
		byPriority[row[1]]++
	}

	s := Summary{
		ByStatus:   make([]StatusEntry, 0, len(byStatus)),
		ByPriority: make([]PriorityEntry, 0, len(byPriority)),
		Total:      len(rows),
	}

	for k, n := range byStatus {
		s.ByStatus = append(s.ByStatus, StatusEntry{Status: k, Count: n})
	}
	for k, n := range byPriority {
		s.ByPriority = append(s.ByPriority, PriorityEntry{Priority: k, Count: n})
	}

	sort.Slice(s.ByStatus, func(i, j int) bool { return s.ByStatus[i].Status < s.ByStatus[j].Status })
	sort.Slice(s.ByPriority, func(i, j int) bool { return s.ByPriority[i].Priority < s.ByPriority[j].Priority })

	return s
}
