// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-radar/internal/search"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// Kind is the provenance an identifier was classified as.
type Kind int

const (
	KindSemanticScholar Kind = iota
	KindPapersWithCode
	KindLocal
)

// String returns the Metadata.Source value for k.
func (k Kind) String() string {
	switch k {
	case KindPapersWithCode:
		return types.SourcePapersWithCode
	case KindLocal:
		return types.SourceLocal
	default:
		return types.SourceSemanticScholar
	}
}

const corpusIDPrefix = "CorpusID:"

var hex40Re = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// Classify determines which backend owns id and the identifier that backend
// expects. Rules apply in order; anything unrecognized is treated as a
// Semantic Scholar identifier.
func Classify(id string) (Kind, string) {
	id = strings.TrimSpace(id)
	switch {
	case strings.HasPrefix(id, search.IDPrefixSemanticScholar):
		return KindSemanticScholar, strings.TrimPrefix(id, search.IDPrefixSemanticScholar)
	case strings.HasPrefix(id, search.IDPrefixPapersWithCode):
		return KindPapersWithCode, strings.TrimPrefix(id, search.IDPrefixPapersWithCode)
	case isUUID(id):
		return KindLocal, id
	case hex40Re.MatchString(id):
		return KindSemanticScholar, id
	case strings.HasPrefix(id, corpusIDPrefix):
		return KindSemanticScholar, id
	default:
		return KindSemanticScholar, id
	}
}

// isUUID accepts only the canonical 36-character form; uuid.Parse alone
// would also take braced, URN and undashed variants.
func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func cacheKey(k Kind, id string) string {
	return k.String() + ":" + id
}
