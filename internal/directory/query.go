package directory

import (
	"sort"
	"strings"

	"repdir-backend/internal/model"
)

// Query narrows a directory snapshot the way the dashboard does.
type Query struct {
	Search       string   // substring of the locality key, case-insensitive
	Designations []string // empty means all
}

// Filter returns the localities matching q. Localities left with no
// representatives are dropped.
func Filter(dir model.Directory, q Query) model.Directory {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	want := make(map[string]bool, len(q.Designations))
	for _, d := range q.Designations {
		want[d] = true
	}

	out := model.Directory{}
	for loc, reps := range dir {
		if !strings.Contains(strings.ToLower(loc), search) {
			continue
		}
		var kept []model.Representative
		for _, r := range reps {
			if len(want) == 0 || want[r.Designation] {
				kept = append(kept, r)
			}
		}
		if len(kept) > 0 {
			out[loc] = kept
		}
	}
	return out
}

// Stats summarizes a directory.
type Stats struct {
	Total         int            `json:"total"`
	Localities    int            `json:"localities"`
	MLA           int            `json:"mla"`
	MP            int            `json:"mp"`
	ByDesignation map[string]int `json:"by_designation"`
}

// ComputeStats counts representatives overall and per designation.
func ComputeStats(dir model.Directory) Stats {
	st := Stats{Localities: len(dir), ByDesignation: map[string]int{}}
	for _, reps := range dir {
		for _, r := range reps {
			st.Total++
			st.ByDesignation[r.Designation]++
		}
	}
	st.MLA = st.ByDesignation[model.DesignationMLA]
	st.MP = st.ByDesignation[model.DesignationMP]
	return st
}

// Suggestion is a name match offered while typing.
type Suggestion struct {
	Locality    string `json:"locality"`
	Name        string `json:"name"`
	Designation string `json:"designation"`
}

const (
	rankPrefix = iota
	rankWordPrefix
	rankSubstring
	rankSubsequence
	rankNone
)

// Suggest returns up to limit representatives whose name matches q. A full
// prefix ranks first, then a prefix of any later word, then a substring,
// then the letters of q appearing in order.
func Suggest(dir model.Directory, q string, limit int) []Suggestion {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" || limit <= 0 {
		return []Suggestion{}
	}

	type scored struct {
		Suggestion
		rank int
	}
	var hits []scored
	for loc, reps := range dir {
		for _, r := range reps {
			if rank := matchRank(strings.ToLower(r.Name), q); rank != rankNone {
				hits = append(hits, scored{Suggestion{loc, r.Name, r.Designation}, rank})
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name); an != bn {
			return an < bn
		}
		return a.Locality < b.Locality
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Suggestion, len(hits))
	for i, h := range hits {
		out[i] = h.Suggestion
	}
	return out
}

func matchRank(name, q string) int {
	switch {
	case strings.HasPrefix(name, q):
		return rankPrefix
	case hasWordPrefix(name, q):
		return rankWordPrefix
	case strings.Contains(name, q):
		return rankSubstring
	case isSubsequence(name, q):
		return rankSubsequence
	}
	return rankNone
}

func hasWordPrefix(name, q string) bool {
	for _, w := range strings.Fields(name) {
		if strings.HasPrefix(w, q) {
			return true
		}
	}
	return false
}

func isSubsequence(name, q string) bool {
	rs := []rune(q)
	i := 0
	for _, c := range name {
		if i < len(rs) && c == rs[i] {
			i++
		}
	}
	return i == len(rs)
}
