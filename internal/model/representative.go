package model

import (
	"sort"
	"strings"
)

// Representative is a single elected official listed under a locality.
// Phone and Email are stored as "" when not supplied.
type Representative struct {
	Name        string `json:"name"`
	Designation string `json:"designation"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

// Directory maps a normalized locality key to its representatives in
// insertion order. A locality with no representatives is never stored.
type Directory map[string][]Representative

// Designation values accepted by the directory.
const (
	DesignationMP                    = "MP"
	DesignationMLA                   = "MLA"
	DesignationMayor                 = "Mayor"
	DesignationNagarSevak            = "Nagar Sevak"
	DesignationSarpanch              = "Sarpanch"
	DesignationUpSarpanch            = "Up-Sarpanch"
	DesignationGramPanchayatMember   = "Gram Panchayat Member"
	DesignationPanchayatSamitiMember = "Panchayat Samiti Member"
	DesignationZilaParishadMember    = "Zila Parishad Member"
)

var designations = []string{
	DesignationMP,
	DesignationMLA,
	DesignationMayor,
	DesignationNagarSevak,
	DesignationSarpanch,
	DesignationUpSarpanch,
	DesignationGramPanchayatMember,
	DesignationPanchayatSamitiMember,
	DesignationZilaParishadMember,
}

// Designations returns the accepted designations in display order.
func Designations() []string {
	out := make([]string, len(designations))
	copy(out, designations)
	return out
}

// IsDesignation reports whether d is one of the accepted designations.
// Matching is exact and case-sensitive.
func IsDesignation(d string) bool {
	for _, v := range designations {
		if v == d {
			return true
		}
	}
	return false
}

// LocalityKey normalizes a locality for use as a Directory key.
func LocalityKey(locality string) string {
	return strings.ToLower(strings.TrimSpace(locality))
}

// SameName reports whether two representative names collide.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Clone returns a deep copy of the directory.
func (d Directory) Clone() Directory {
	out := make(Directory, len(d))
	for loc, reps := range d {
		cp := make([]Representative, len(reps))
		copy(cp, reps)
		out[loc] = cp
	}
	return out
}

// Normalize returns a copy with trimmed, lower-cased keys. Keys that collide
// after normalization are merged in sorted raw-key order and empty sequences
// are dropped.
func (d Directory) Normalize() Directory {
	out := make(Directory, len(d))
	for _, loc := range d.Localities() {
		reps := d[loc]
		key := LocalityKey(loc)
		if key == "" || len(reps) == 0 {
			continue
		}
		out[key] = append(out[key], reps...)
	}
	return out
}

// Count returns the total number of representatives.
func (d Directory) Count() int {
	n := 0
	for _, reps := range d {
		n += len(reps)
	}
	return n
}

// Localities returns the directory keys in sorted order.
func (d Directory) Localities() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
