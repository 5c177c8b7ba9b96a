package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// This file is the reconstruction engine: pure functions that derive
// "what was tagged when" from a slice of ledger events. There is no cached
// current-state table anywhere in the system — every answer is recomputed
// from the events, so the answer can never drift out of sync with the ledger.

// SortEvents orders events by (OccurredAt, RecordedAt) ascending, in place.
// RecordedAt breaks ties between events sharing the same occurrence instant;
// this makes the outcome of same-instant add/remove races deterministic.
func SortEvents(events []TagEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].RecordedAt.Before(events[j].RecordedAt)
		}
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
}

// ActiveTagsAt returns the tags active on a calibration at instant t, given
// all ledger events for that calibration. Events occurring after t are
// invisible to the query. A tag is active iff the last visible event for it
// is an add. The result is sorted by tag name.
func ActiveTagsAt(events []TagEvent, t time.Time) []string {
	last := lastVisibleByKey(events, t, func(e TagEvent) string { return e.Tag })

	tags := make([]string, 0, len(last))
	for tag, kind := range last {
		if kind == KindAdd {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// ActiveCalibrationsAt returns the calibrations a tag was active on at
// instant t, given all ledger events for that tag. Same rule as ActiveTagsAt,
// grouped by calibration instead of tag. The result is sorted by ID for
// deterministic output.
func ActiveCalibrationsAt(events []TagEvent, t time.Time) []uuid.UUID {
	last := lastVisibleByKey(events, t, func(e TagEvent) uuid.UUID { return e.CalibrationID })

	ids := make([]uuid.UUID, 0, len(last))
	for id, kind := range last {
		if kind == KindAdd {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// lastVisibleByKey groups events by key, discards events with OccurredAt > t,
// and returns the kind of the last event per key in (OccurredAt, RecordedAt)
// order. Keys whose events are all in the future are absent from the result.
func lastVisibleByKey[K comparable](events []TagEvent, t time.Time, key func(TagEvent) K) map[K]EventKind {
	type latest struct {
		occurredAt time.Time
		recordedAt time.Time
		kind       EventKind
	}
	byKey := make(map[K]latest)
	for _, e := range events {
		if e.OccurredAt.After(t) {
			continue
		}
		k := key(e)
		cur, ok := byKey[k]
		if !ok || after(e.OccurredAt, e.RecordedAt, cur.occurredAt, cur.recordedAt) {
			byKey[k] = latest{occurredAt: e.OccurredAt, recordedAt: e.RecordedAt, kind: e.Kind}
		}
	}

	out := make(map[K]EventKind, len(byKey))
	for k, l := range byKey {
		out[k] = l.kind
	}
	return out
}

// after reports whether event time (o1, r1) sorts after (o2, r2).
func after(o1, r1, o2, r2 time.Time) bool {
	if o1.Equal(o2) {
		return r1.After(r2)
	}
	return o1.After(o2)
}

// CheckAlternation verifies that inserting candidate into the history of its
// (tag, calibration) pair keeps the sequence strictly alternating add, remove,
// add, ... starting with add. Events from other pairs in the input are
// ignored. The candidate is placed by (OccurredAt, RecordedAt) like any other
// event, so a backdated append that would corrupt the middle of the history
// is rejected just like an append at the tail.
//
// Both ledger implementations call this before committing an append; the
// invariant lives here so no store can enforce a different rule.
func CheckAlternation(history []TagEvent, candidate TagEvent) error {
	pair := candidate.pair()
	merged := make([]TagEvent, 0, len(history)+1)
	for _, e := range history {
		if e.pair() == pair {
			merged = append(merged, e)
		}
	}
	merged = append(merged, candidate)
	SortEvents(merged)

	want := KindAdd
	for _, e := range merged {
		if e.Kind != want {
			return fmt.Errorf("tag %q on calibration %s: %q event out of order: %w",
				candidate.Tag, candidate.CalibrationID, e.Kind, ErrIntegrity)
		}
		if want == KindAdd {
			want = KindRemove
		} else {
			want = KindAdd
		}
	}
	return nil
}
