/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package dataproc

import (
	"testing"
	"time"
)

func TestFlattenMap_ScalarsPassThrough(t *testing.T) {
	row, err := FlattenMap(map[string]any{"issue_key": "TEST-1", "story_points": 3.0}, nil, nil)
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if row["issue_key"] != "TEST-1" { t.Fatalf("issue_key = %v", row["issue_key"]) }
	if row["story_points"] != 3.0 { t.Fatalf("story_points = %v", row["story_points"]) }
}

func TestFlattenMap_DropsEmptyValues(t *testing.T) {
	row, err := FlattenMap(map[string]any{
		"a": nil,
		"b": "",
		"c": 0.0,
		"d": false,
		"e": "keep",
	}, nil, nil)
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if len(row) != 1 || row["e"] != "keep" { t.Fatalf("row = %#v", row) }
}

func TestFlattenMap_NestedNamesJoinWithUnderscore(t *testing.T) {
	row, err := FlattenMap(map[string]any{
		"project":     map[string]any{"key": "TEST"},
		"fixVersions": []any{map[string]any{"name": "1.0"}, map[string]any{"name": "2.0"}},
	}, nil, nil)
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if row["project_key"] != "TEST" { t.Fatalf("project_key = %v", row["project_key"]) }
	if row["fixVersions_0_name"] != "1.0" || row["fixVersions_1_name"] != "2.0" {
		t.Fatalf("fixVersions columns = %#v", row)
	}
}

func TestFlattenMap_CountedFieldEmitsLength(t *testing.T) {
	row, err := FlattenMap(map[string]any{"customer": []any{"a", "b", "c"}}, []string{"customer"}, nil)
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if row["customer"] != 3 { t.Fatalf("customer = %v", row["customer"]) }

	// an empty counted list still reports zero
	row, err = FlattenMap(map[string]any{"customer": []any{}}, []string{"customer"}, nil)
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if row["customer"] != 0 { t.Fatalf("customer = %v", row["customer"]) }
}

func TestFlattenMap_DatetimeFieldBecomesDate(t *testing.T) {
	row, err := FlattenMap(map[string]any{"created": "2018-04-05T10:39:00.000-0400"}, nil, []string{"created"})
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	got, ok := row["created"].(time.Time)
	if !ok { t.Fatalf("created = %T", row["created"]) }
	want := time.Date(2018, time.April, 5, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) { t.Fatalf("created = %v, want %v", got, want) }
}

func TestFlattenMap_NestedDatetimeFieldMatchesJoinedName(t *testing.T) {
	row, err := FlattenMap(map[string]any{
		"worklog": map[string]any{"started": "2018-04-05T10:39:00.000-0400"},
	}, nil, []string{"worklog_started"})
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if _, ok := row["worklog_started"].(time.Time); !ok {
		t.Fatalf("worklog_started = %T(%v)", row["worklog_started"], row["worklog_started"])
	}
}

func TestFlattenMap_MalformedTimestampIsFatal(t *testing.T) {
	_, err := FlattenMap(map[string]any{"created": "2018-13-45T10:39:00.000-0400"}, nil, []string{"created"})
	if err == nil { t.Fatalf("expected parse error") }
}

func TestFlattenMap_NonDatetimeStringKeepsTimestampShape(t *testing.T) {
	row, err := FlattenMap(map[string]any{"summary": "2018-04-05T10:39:00.000-0400"}, nil, []string{"created"})
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if row["summary"] != "2018-04-05T10:39:00.000-0400" { t.Fatalf("summary = %v", row["summary"]) }
}

func TestFlattenMap_NormalizesNewlines(t *testing.T) {
	row, err := FlattenMap(map[string]any{"summary": "line1\r\nline2\n\nline3"}, nil, nil)
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if row["summary"] != "line1 line2 line3" { t.Fatalf("summary = %q", row["summary"]) }
}

func TestFlatten_Deterministic(t *testing.T) {
	data := map[string]any{"b": "2", "a": "1", "c": map[string]any{"z": "3", "y": "4"}}
	first, err := Flatten(data, nil, nil)
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	for i := 0; i < 10; i++ {
		again, err := Flatten(data, nil, nil)
		if err != nil { t.Fatalf("unexpected error: %v", err) }
		if len(again) != len(first) { t.Fatalf("lengths differ: %d vs %d", len(again), len(first)) }
		for j := range again {
			if again[j] != first[j] { t.Fatalf("order differs at %d: %v vs %v", j, again[j], first[j]) }
		}
	}
}
