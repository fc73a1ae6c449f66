/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */

// Package dataproc turns nested Jira issue JSON into flat report rows:
// recursive flattening, sprint token decoding and changelog extraction.
package dataproc

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// timestampRe is the strict Jira timestamp shape that datetime fields
// must match before being parsed to a calendar date.
var timestampRe = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}\.[0-9]{3}[+-][0-9]{4}`)

const timestampLayout = "2006-01-02T15:04:05.000-0700"

var newlineRe = regexp.MustCompile(`\n+`)

// MaxDate sorts missing dates last and keys grand-total groups.
var MaxDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Field is one flattened name/value pair.
type Field struct {
	Name  string
	Value any
}

// Flatten converts a nested record into flat name/value pairs. Names
// are built by joining the key path with underscores, list elements
// contribute their index. Nil, empty and zero leaves are dropped.
// Lists named in countFields yield their length instead of their
// elements. String leaves named in datetimeFields that match the Jira
// timestamp shape are parsed to a calendar date; a matching string
// that fails to parse is a fatal error.
//
// Keys are visited in sorted order, so two paths colliding on the same
// flattened name resolve deterministically (last write wins when the
// caller collects into a map).
func Flatten(data map[string]any, countFields, datetimeFields []string) ([]Field, error) {
	counted := toSet(countFields)
	datetimes := toSet(datetimeFields)
	var out []Field
	err := flattenInto(data, counted, datetimes, func(f Field) { out = append(out, f) })
	if err != nil { return nil, err }
	return out, nil
}

// FlattenMap collects Flatten output into a single row mapping.
func FlattenMap(data map[string]any, countFields, datetimeFields []string) (map[string]any, error) {
	fields, err := Flatten(data, countFields, datetimeFields)
	if err != nil { return nil, err }
	row := make(map[string]any, len(fields))
	for _, f := range fields { row[f.Name] = f.Value }
	return row, nil
}

func flattenInto(data map[string]any, counted, datetimes map[string]struct{}, emit func(Field)) error {
	keys := make([]string, 0, len(data))
	for k := range data { keys = append(keys, k) }
	sort.Strings(keys)

	for _, k := range keys {
		v := data[k]
		switch val := v.(type) {
		case map[string]any:
			child := make(map[string]any, len(val))
			for k1, v1 := range val { child[joinName(k, k1)] = v1 }
			if err := flattenInto(child, counted, datetimes, emit); err != nil { return err }
		case []any:
			if _, ok := counted[k]; ok {
				emit(Field{k, len(val)})
				continue
			}
			child := make(map[string]any, len(val))
			for idx, v1 := range val { child[fmt.Sprintf("%s_%d", k, idx)] = v1 }
			if err := flattenInto(child, counted, datetimes, emit); err != nil { return err }
		default:
			if !truthy(v) { continue }
			if s, ok := v.(string); ok {
				if _, dt := datetimes[k]; dt && timestampRe.MatchString(s) {
					d, err := parseStrictTimestamp(s)
					if err != nil { return err }
					emit(Field{k, d})
					continue
				}
				emit(Field{k, normalizeString(s)})
				continue
			}
			emit(Field{k, v})
		}
	}
	return nil
}

func joinName(parts ...string) string { return strings.Join(parts, "_") }

func toSet(names []string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names { s[n] = struct{}{} }
	return s
}

// truthy reports whether a scalar should be emitted at all. Absence,
// not null, is the public contract for empty leaves.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case time.Time:
		return !t.IsZero()
	default:
		return true
	}
}

func normalizeString(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return newlineRe.ReplaceAllString(s, " ")
}

func parseStrictTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, timestampRe.FindString(s))
	if err != nil { return time.Time{}, fmt.Errorf("dataproc: malformed timestamp %q: %w", s, err) }
	return DateOf(t), nil
}

// DateOf truncates a timestamp to its calendar date, timezone-naive.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
