/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package dataproc

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Jira encodes sprint membership as opaque toString tokens, e.g.
// com.atlassian.greenhopper.service.sprint.Sprint@1f2d[id=82,...,name=Chambers Sprint 9,startDate=2017-01-23T11:48:00.000Z,...]
var sprintDateLayouts = []string{
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339,
}

// ParseSprint decodes one encoded sprint token into a structured entry
// with typed id/sequence and calendar-date start/end/complete fields.
// Tokens without the bracketed body, or with unparseable dates, are a
// fatal parse error.
func ParseSprint(token string) (map[string]any, error) {
	open := strings.Index(token, "[")
	close_ := strings.LastIndex(token, "]")
	if open < 0 || close_ < open {
		return nil, fmt.Errorf("dataproc: malformed sprint token %q", token)
	}
	body := token[open+1 : close_]

	info := map[string]any{}
	lastKey := ""
	for _, part := range strings.Split(body, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			// a comma inside the previous value, e.g. a sprint name
			if s, ok := info[lastKey].(string); ok { info[lastKey] = s + "," + part }
			continue
		}
		k, val := kv[0], kv[1]
		lastKey = k
		if val == "" || val == "<null>" { continue }
		switch k {
		case "id", "rapidViewId", "sequence":
			n, err := strconv.Atoi(val)
			if err != nil { return nil, fmt.Errorf("dataproc: sprint %s %q: %w", k, val, err) }
			info[k] = n
		case "startDate", "endDate", "completeDate":
			d, err := parseSprintDate(val)
			if err != nil { return nil, fmt.Errorf("dataproc: sprint %s %q: %w", k, val, err) }
			info[k] = d
		default:
			info[k] = val
		}
	}
	return info, nil
}

// DecodeSprints decodes a raw sprint field value (a list of encoded
// tokens) and returns structured entries sorted by start date, earliest
// first, undated sprints last. Returns nil for an absent/empty field.
func DecodeSprints(v any) ([]any, error) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 { return nil, nil }
	out := make([]any, 0, len(list))
	for _, t := range list {
		s, ok := t.(string)
		if !ok { return nil, fmt.Errorf("dataproc: sprint entry is %T, want string", t) }
		info, err := ParseSprint(s)
		if err != nil { return nil, err }
		out = append(out, info)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sprintStart(out[i]).Before(sprintStart(out[j]))
	})
	return out, nil
}

func sprintStart(v any) time.Time {
	if m, ok := v.(map[string]any); ok {
		if d, ok := m["startDate"].(time.Time); ok { return d }
	}
	return MaxDate
}

func parseSprintDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range sprintDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil { return DateOf(t), nil }
		lastErr = err
	}
	return time.Time{}, lastErr
}
