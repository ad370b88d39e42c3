// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/internal/queue"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// Source is one external paper index. Each provider adapter implements it
// and translates provider payloads into types.ResearchResult.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, offset, limit int) ([]types.ResearchResult, error)

	// Detail returns nil and a nil error when the provider has no such paper.
	Detail(ctx context.Context, id string) (*types.ResearchResult, error)
}

// Transport carries what every adapter needs to reach its provider: the HTTP
// client, the shared request queue and the resilience policy.
type Transport struct {
	Client    *http.Client
	Queue     *queue.Queue
	Policy    httputil.Policy
	UserAgent string
}

// get issues a GET through the queue and resilience wrapper and decodes the
// JSON body into a fresh T. A 404 yields a nil pointer.
func get[T any](ctx context.Context, tr Transport, class queue.Class, source, rawURL string, header http.Header) (*T, error) {
	return httputil.Through(ctx, tr.Queue, class, source, tr.Policy, func(ctx context.Context) (*T, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		if tr.UserAgent != "" {
			req.Header.Set("User-Agent", tr.UserAgent)
		}
		req.Header.Set("Accept", "application/json")
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		var out T
		if err := httputil.DoJSON(ctx, tr.Client, req, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

const maxSlugLen = 100

// Slug derives a stable identifier from bibliographic fields for records
// whose provider supplied no native id.
func Slug(title string, year int, venue string, authors []string) string {
	parts := []string{title}
	if year > 0 {
		parts = append(parts, strconv.Itoa(year))
	}
	parts = append(parts, venue)
	parts = append(parts, authors...)

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.Join(parts, " ")) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.Trim(b.String(), "-")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	return s
}
