package models

import "fmt"

// Rank is an ordered tier derived from an account's team metrics.
// The zero value is RankUnranked. Ordering is meaningful: a higher
// constant is a strictly higher tier.
type Rank int

const (
	RankUnranked Rank = iota
	RankOrigin
	RankLifeChanger
	RankAdvisor
	RankVisionary
	RankCreator
)

var rankNames = map[Rank]string{
	RankUnranked:    "unranked",
	RankOrigin:      "origin",
	RankLifeChanger: "life_changer",
	RankAdvisor:     "advisor",
	RankVisionary:   "visionary",
	RankCreator:     "creator",
}

// String returns the stable storage/wire name of the rank.
func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return "unranked"
}

// AtLeast reports whether r is the given tier or higher.
func (r Rank) AtLeast(min Rank) bool {
	return r >= min
}

// ParseRank maps a stored rank name back to its Rank value.
// Unknown names are an error so storage corruption surfaces instead of
// silently demoting an account.
func ParseRank(name string) (Rank, error) {
	for r, n := range rankNames {
		if n == name {
			return r, nil
		}
	}
	return RankUnranked, fmt.Errorf("unknown rank %q", name)
}

// MarshalText implements encoding.TextMarshaler so ranks serialize as their
// names in JSON reports.
func (r Rank) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rank) UnmarshalText(text []byte) error {
	parsed, err := ParseRank(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
