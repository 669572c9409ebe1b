package sqlite

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/profiledex/profiledex/internal/services/projector/domain"
	"github.com/profiledex/profiledex/internal/services/projector/storage"
)

// Search column weights: identity matches rank far above profile data, which
// ranks above narrative text.
const searchRankSQL = "bm25(profiles_fts, 5.0, 2.0, 1.0)"

// Search runs weighted full-text search over the derived search
// representation. The query is folded the same way indexed text is, so
// accents and case never affect matching.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]storage.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT f.key, p.full_name, `+searchRankSQL+` AS rank
FROM profiles_fts f
JOIN profiles p ON p.key = f.key
WHERE profiles_fts MATCH ?
ORDER BY rank
LIMIT ?
`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	defer rows.Close()

	var results []storage.SearchResult
	for rows.Next() {
		var result storage.SearchResult
		var rank float64
		if err := rows.Scan(&result.Key, &result.FullName, &rank); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		// bm25 reports better matches as more negative.
		result.Score = -rank
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return results, nil
}

// LookupByCompany matches profiles whose current company equals or starts
// with the given value.
func (s *Store) LookupByCompany(ctx context.Context, company string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	pattern := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(company) + "%"
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT key FROM profiles
WHERE current_company = ? OR current_company LIKE ? ESCAPE '\'
ORDER BY key
LIMIT ?
`, company, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("lookup by company: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan company match: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate company matches: %w", err)
	}
	return keys, nil
}

// ftsQuery folds the user query and strips FTS5 operator characters so bare
// terms combine as an implicit AND.
func ftsQuery(query string) string {
	folded := domain.FoldQuery(query)
	var out strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			out.WriteRune(r)
		} else {
			out.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(out.String()), " ")
}
