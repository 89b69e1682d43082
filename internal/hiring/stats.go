package hiring

import (
	"strings"

	"github.com/kingrea/hiremind/internal/api"
)

// Stats summarizes a profile list for the dashboard.
type Stats struct {
	Total      int
	Active     int
	Completed  int
	InProgress int
	// CompletionRate is the rounded percentage of completed profiles.
	CompletionRate int
}

// ComputeStats counts profiles by status. Drafts count as in progress.
func ComputeStats(profiles []api.Profile) Stats {
	st := Stats{Total: len(profiles)}
	for _, p := range profiles {
		switch strings.ToLower(strings.TrimSpace(p.Status)) {
		case "active":
			st.Active++
		case "completed":
			st.Completed++
		case "draft", "in_progress":
			st.InProgress++
		}
	}
	if st.Total > 0 {
		st.CompletionRate = (st.Completed*100 + st.Total/2) / st.Total
	}
	return st
}

// FilterProfiles keeps profiles whose role title or department contains
// term, case-insensitively. An empty term keeps everything.
func FilterProfiles(profiles []api.Profile, term string) []api.Profile {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]api.Profile, 0, len(profiles))
	for _, p := range profiles {
		if term == "" ||
			strings.Contains(strings.ToLower(p.RoleTitle), term) ||
			strings.Contains(strings.ToLower(p.Department), term) {
			out = append(out, p)
		}
	}
	return out
}
