// Package strings holds small string helpers for configuration parsing.
package strings

import (
	"strings"
)

// SplitList splits raw on sep, trims each item and drops empty and repeated
// items, keeping first-seen order. An all-blank input returns nil.
//
//	SplitList(" k1:9092, k2:9092,,k1:9092 ", ",") // []string{"k1:9092", "k2:9092"}
func SplitList(raw, sep string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
