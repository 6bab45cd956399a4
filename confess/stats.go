package confess

import "time"

// Stats is what the admin stats view shows. None of it is correctness-critical.
type Stats struct {
	Total            int
	Today            int
	UniqueSubmitters int
	First            *Confession
	Latest           *Confession
}

// QueryStats summarises the store as of now. Today starts at local midnight
// in now's location.
func QueryStats(s *Store, now time.Time) Stats {
	st := Stats{
		Total:            s.Count(),
		Today:            s.CountOnOrAfter(StartOfDay(now)),
		UniqueSubmitters: s.UniqueSubmitters(),
	}
	if first, ok := s.First(); ok {
		st.First = &first
	}
	if latest, ok := s.Latest(); ok {
		st.Latest = &latest
	}
	return st
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
