package pairing

import (
	"strings"

	"github.com/customs-pairing/backend/internal/models"
)

// Options control how documents are grouped into pairs.
type Options struct {
	// Locale for filename collation (BCP 47). Empty means Turkish.
	Locale string

	// KeywordHint enables the filename-heuristic slot bias: when exactly
	// one filename of a formed pair contains a known keyword, that
	// document is placed in the matching slot. The hint never changes
	// which documents are paired together, only slot assignment inside
	// an already-formed pair.
	KeywordHint        bool
	DeclarationKeyword string
	FreightKeyword     string
}

// DefaultOptions match the production deployment: Turkish collation,
// keyword hint on.
func DefaultOptions() Options {
	return Options{
		Locale:             "tr",
		KeywordHint:        true,
		DeclarationKeyword: "beyanname",
		FreightKeyword:     "navlun",
	}
}

// Draft is a pairing proposal before persistence: the slot assignment and
// tri-state of one record to be created.
type Draft struct {
	Declaration *models.DocumentInfo
	Freight     *models.DocumentInfo
	Status      models.PairingStatus
}

// BatchPair groups an upload batch (or a zipper remainder) into drafts.
//
// The input is sorted by filename and walked two at a time: the first of
// each pair becomes the declaration, the second the freight, and the pair
// enters the queue as pending. An odd trailing document becomes an
// unpaired singleton in the declaration slot. Order is the single source
// of truth; document content is never inspected.
func BatchPair(docs []*models.DocumentInfo, opts Options) []Draft {
	sorted := make([]*models.DocumentInfo, len(docs))
	copy(sorted, docs)
	NewSorter(opts.Locale).SortDocuments(sorted)

	drafts := make([]Draft, 0, (len(sorted)+1)/2)
	for i := 0; i+1 < len(sorted); i += 2 {
		decl, freight := sorted[i], sorted[i+1]
		if opts.KeywordHint {
			decl, freight = applyKeywordHint(decl, freight, opts)
		}
		drafts = append(drafts, Draft{
			Declaration: decl,
			Freight:     freight,
			Status:      models.PairingPending,
		})
	}
	if len(sorted)%2 == 1 {
		drafts = append(drafts, Draft{
			Declaration: sorted[len(sorted)-1],
			Status:      models.PairingUnpaired,
		})
	}
	return drafts
}

// applyKeywordHint swaps the slots of one formed pair when exactly one
// filename matches a slot keyword. With no match (or both matching) the
// positional assignment stands.
func applyKeywordHint(a, b *models.DocumentInfo, opts Options) (decl, freight *models.DocumentInfo) {
	if kw := opts.DeclarationKeyword; kw != "" {
		ma, mb := containsFold(a.FileName, kw), containsFold(b.FileName, kw)
		if mb && !ma {
			return b, a
		}
		if ma && !mb {
			return a, b
		}
	}
	if kw := opts.FreightKeyword; kw != "" {
		ma, mb := containsFold(a.FileName, kw), containsFold(b.FileName, kw)
		if ma && !mb {
			return b, a
		}
	}
	return a, b
}

func containsFold(name, keyword string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(keyword))
}
