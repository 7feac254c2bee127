// Package simhash fingerprints listing pages so the crawler can tell when
// the pager hands back a page it has already seen.
package simhash

import (
	"hash/fnv"
	"strings"

	"github.com/use-agent/tendercrawl/models"
)

// Fingerprint computes a 64-bit SimHash over tokens. Each token votes on
// every bit through its FNV-64a hash. No tokens yields 0.
func Fingerprint(tokens []string) uint64 {
	if len(tokens) == 0 {
		return 0
	}

	var vector [64]int
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		for i := range vector {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i, v := range vector {
		if v > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// OfRecords fingerprints a listing page by its rows. Each row contributes
// one token built from its identifying fields, so reordering the rows does
// not change the result.
func OfRecords(records []models.Record) uint64 {
	tokens := make([]string, 0, len(records))
	for _, r := range records {
		tokens = append(tokens, strings.Join([]string{r.CaseNumber, r.Organization, r.Title, r.DetailLink}, "\x1f"))
	}
	return Fingerprint(tokens)
}
