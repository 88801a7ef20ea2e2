package model

import "fmt"

// University is one of the fixed set of schools contacts belong to.
type University string

const (
	UniversityWaterloo University = "Waterloo"
	UniversityToronto  University = "Toronto"
	UniversityWestern  University = "Western"
	UniversityMcMaster University = "McMaster"
	UniversityLaurier  University = "Laurier"
	UniversityQueens   University = "Queens"
	UniversityManitoba University = "Manitoba"
)

// Universities lists every recognized university code in a stable order.
var Universities = []University{
	UniversityWaterloo,
	UniversityToronto,
	UniversityWestern,
	UniversityMcMaster,
	UniversityLaurier,
	UniversityQueens,
	UniversityManitoba,
}

// universityDisplayNames maps a code to the prose name used in rendered
// emails. The mapping embeds the leading article where one is needed, so
// callers must not prepend "the" themselves.
var universityDisplayNames = map[University]string{
	UniversityWaterloo: "the University of Waterloo",
	UniversityToronto:  "the University of Toronto",
	UniversityWestern:  "Western University",
	UniversityMcMaster: "McMaster University",
	UniversityLaurier:  "Wilfrid Laurier University",
	UniversityQueens:   "Queens University",
	UniversityManitoba: "the University of Manitoba",
}

// DisplayName returns the full descriptive name for a university code.
// An unrecognized code is an error, not a silent default: new values
// introduced upstream must be added here explicitly.
func (u University) DisplayName() (string, error) {
	name, ok := universityDisplayNames[u]
	if !ok {
		return "", fmt.Errorf("unrecognized university %q", string(u))
	}
	return name, nil
}

// Known reports whether the code belongs to the fixed set.
func (u University) Known() bool {
	_, ok := universityDisplayNames[u]
	return ok
}
