// Package dedup removes repeated postings within a single batch.
package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"jobmatch/internal/domain/job"
)

// Signature is md5("title|company|location") over the trimmed, lower-cased fields.
func Signature(p job.Posting) string {
	key := norm(p.Title) + "|" + norm(p.Company) + "|" + norm(p.Location)
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Dedup keeps the first posting of every signature, in input order.
func Dedup(postings []job.Posting) []job.Posting {
	return By(postings, func(p job.Posting) job.Posting { return p })
}

// By deduplicates any items that carry a posting.
func By[T any](items []T, posting func(T) job.Posting) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		sig := Signature(posting(it))
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, it)
	}
	return out
}
