package domain

import (
	"slices"

	"github.com/samber/lo"
)

// Roster is a complete snapshot of the identities currently online.
type Roster []UserID

// NewRoster returns a sorted, duplicate free snapshot.
func NewRoster(ids []UserID) Roster {
	r := Roster(lo.Uniq(ids))
	slices.Sort(r)
	return r
}

func (r Roster) Contains(id UserID) bool {
	return slices.Contains(r, id)
}
