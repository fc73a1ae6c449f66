/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package dataproc

// IssueRecord normalizes one raw issue from the search API: the issue
// key is hoisted to issue_key, field keys are renamed through the
// custom-field table (Jira id -> human name), the encoded sprint field
// is decoded into structured entries and the raw changelog is carried
// along for LoadTransitions.
func IssueRecord(issue map[string]any, fieldNames map[string]string) (map[string]any, error) {
	rec := map[string]any{}
	if k, ok := issue["key"]; ok { rec["issue_key"] = k }

	fields, _ := issue["fields"].(map[string]any)
	for k, v := range fields {
		name := k
		if n, ok := fieldNames[k]; ok && n != "" { name = n }
		if name == "sprint" {
			decoded, err := DecodeSprints(v)
			if err != nil { return nil, err }
			if decoded != nil { rec[name] = decoded }
			continue
		}
		rec[name] = v
	}

	if ch, ok := issue["changelog"]; ok { rec["changelog"] = ch }
	return rec, nil
}
