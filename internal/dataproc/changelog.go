/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package dataproc

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sentinel status names used when an audit entry lacks one side.
const (
	defaultFromStatus = "New"
	defaultToStatus   = "Open"
)

var changelogLayouts = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
}

// LoadTransitions derives the status-change history from the raw
// changelog attached to a record. It adds a "transitions" list (always
// present, possibly empty) of {name, change_date} entries named
// from_<old>_to_<new>, sorted ascending by event time with ties kept
// in original order, and a status_<Name> date column per status
// entered, holding the latest such date.
func LoadTransitions(rec map[string]any) error {
	type statusChange struct {
		at       time.Time
		from, to string
	}
	var changes []statusChange

	if ch, ok := rec["changelog"].(map[string]any); ok {
		histories, _ := ch["histories"].([]any)
		for _, h0 := range histories {
			hv, _ := h0.(map[string]any)
			if hv == nil { continue }
			items, _ := hv["items"].([]any)
			var at time.Time
			parsed := false
			for _, it0 := range items {
				itm, _ := it0.(map[string]any)
				if itm == nil { continue }
				if asString(itm["field"]) != "status" { continue }
				if !parsed {
					created := asString(hv["created"])
					t, err := parseChangelogTime(created)
					if err != nil { return err }
					at = t
					parsed = true
				}
				changes = append(changes, statusChange{at, asString(itm["fromString"]), asString(itm["toString"])})
			}
		}
	}

	sort.SliceStable(changes, func(i, j int) bool { return changes[i].at.Before(changes[j].at) })

	transitions := make([]any, 0, len(changes))
	for _, c := range changes {
		from := strings.ReplaceAll(c.from, " ", "")
		if from == "" { from = defaultFromStatus }
		to := strings.ReplaceAll(c.to, " ", "")
		if to == "" { to = defaultToStatus }
		d := DateOf(c.at)
		transitions = append(transitions, map[string]any{
			"name":        "from_" + from + "_to_" + to,
			"change_date": d,
		})
		rec["status_"+to] = d
	}
	rec["transitions"] = transitions
	return nil
}

func parseChangelogTime(s string) (time.Time, error) {
	if s == "" { return time.Time{}, fmt.Errorf("dataproc: history entry missing created timestamp") }
	var lastErr error
	for _, layout := range changelogLayouts {
		t, err := time.Parse(layout, s)
		if err == nil { return t, nil }
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("dataproc: malformed history timestamp %q: %w", s, lastErr)
}

func asString(v any) string {
	if v == nil { return "" }
	if s, ok := v.(string); ok { return s }
	return fmt.Sprintf("%v", v)
}
