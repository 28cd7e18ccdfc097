package table

import (
	"fmt"
	"slices"
	"strings"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

type eventKey struct {
	obsID, eventID int64
}

func (k eventKey) compare(o eventKey) int {
	if k.obsID != o.obsID {
		return compareInt(k.obsID, o.obsID)
	}
	return compareInt(k.eventID, o.eventID)
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// uniqueEvents returns the distinct (obs_id, event_id) pairs of t in order
// of first appearance.
func uniqueEvents(t *Table, name string) ([]eventKey, error) {
	if _, err := keyColumns(t, SubarrayEventKeys, name); err != nil {
		return nil, err
	}
	obs, err := t.Int64s("obs_id")
	if err != nil {
		return nil, err
	}
	evt, err := t.Int64s("event_id")
	if err != nil {
		return nil, err
	}
	seen := make(map[eventKey]struct{}, len(obs))
	out := make([]eventKey, 0, len(obs))
	for i := range obs {
		k := eventKey{obs[i], evt[i]}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}

// CheckEqualArrayEventOrder verifies that two tables describe the same
// subarray events in the same relative order. Either table may be at
// subarray or telescope granularity; only obs_id and event_id are used.
func CheckEqualArrayEventOrder(a, b *Table) error {
	ua, err := uniqueEvents(a, "first")
	if err != nil {
		return err
	}
	ub, err := uniqueEvents(b, "second")
	if err != nil {
		return err
	}
	if len(ua) != len(ub) {
		return pipeerr.WithMetadata(pipeerr.CodeEventSetMismatch,
			"Tables have different numbers of events",
			map[string]string{"first": fmt.Sprint(len(ua)), "second": fmt.Sprint(len(ub))})
	}

	sa := slices.SortedFunc(slices.Values(ua), eventKey.compare)
	sb := slices.SortedFunc(slices.Values(ub), eventKey.compare)
	if !slices.Equal(sa, sb) {
		return pipeerr.New(pipeerr.CodeEventSetMismatch, "Tables have different subarray events")
	}
	if !slices.Equal(ua, ub) {
		return pipeerr.New(pipeerr.CodeEventSetMismatch, "Tables have subarray events in different order")
	}
	return nil
}

// OrderBy reorders t so that its rows follow the order of the key tuples
// in ref. Rows of t sharing a key keep their relative order; rows whose key
// does not occur in ref are dropped. on must be a key of ref.
func OrderBy(t, ref *Table, on []string) (*Table, error) {
	tkeys, err := keyColumns(t, on, "table")
	if err != nil {
		return nil, err
	}
	rkeys, err := keyColumns(ref, on, "reference")
	if err != nil {
		return nil, err
	}
	idx, err := buildIndex(rkeys, "reference")
	if err != nil {
		return nil, err
	}
	groups := make([][]int, ref.NumRows())
	for row := 0; row < t.NumRows(); row++ {
		if r := idx.lookup(tkeys, row); r >= 0 {
			groups[r] = append(groups[r], row)
		}
	}
	order := make([]int, 0, t.NumRows())
	for _, g := range groups {
		order = append(order, g...)
	}
	return t.Take(order), nil
}

func formatKey(keys []*Column, row int) string {
	parts := make([]string, len(keys))
	for i, c := range keys {
		parts[i] = fmt.Sprintf("%s=%v", c.Name, c.Values[row])
	}
	return strings.Join(parts, " ")
}
