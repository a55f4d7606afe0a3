// Package pairing implements the document pairing core: filename
// collation, the batch pairing walk and the zipper re-pairing plan.
package pairing

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/customs-pairing/backend/internal/models"
)

// Sorter orders filenames the way the browser did: locale-aware with
// numeric collation, so "file2" sorts before "file10". A fresh collator
// is built per call because collate.Collator keeps internal buffers and
// is not safe for concurrent use.
type Sorter struct {
	tag language.Tag
}

// NewSorter returns a sorter for the given BCP 47 locale. An empty or
// invalid locale falls back to Turkish, the app's deployment locale.
func NewSorter(locale string) *Sorter {
	tag := language.Turkish
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			tag = parsed
		}
	}
	return &Sorter{tag: tag}
}

// Compare orders two filenames; negative means a sorts before b.
func (s *Sorter) Compare(a, b string) int {
	return collate.New(s.tag, collate.Numeric).CompareString(a, b)
}

// SortDocuments sorts documents by filename ascending, in place.
func (s *Sorter) SortDocuments(docs []*models.DocumentInfo) {
	c := collate.New(s.tag, collate.Numeric)
	sort.SliceStable(docs, func(i, j int) bool {
		return c.CompareString(docs[i].FileName, docs[j].FileName) < 0
	})
}

// SortRecords sorts records by their display filename ascending, in place.
func (s *Sorter) SortRecords(records []*models.PairRecord) {
	c := collate.New(s.tag, collate.Numeric)
	sort.SliceStable(records, func(i, j int) bool {
		return c.CompareString(records[i].SortName(), records[j].SortName()) < 0
	})
}
