package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortColumns whitelists the columns a list endpoint may order by. The first
// column is the fallback for empty or unknown input.
type sortColumns []string

var (
	subscriptionSort = sortColumns{"created_at", "updated_at", "start_date", "end_date", "status"}
	ledgerSort       = sortColumns{"sequence", "created_at", "amount"}
)

// orderBy maps user-supplied field and direction onto a safe ORDER BY column.
// Direction defaults to descending; only "asc" in any case flips it.
func (s sortColumns) orderBy(field, dir string) clause.OrderByColumn {
	name := s[0]
	field = strings.TrimSpace(field)
	for _, c := range s {
		if c == field {
			name = c
			break
		}
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: name},
		Desc:   !strings.EqualFold(strings.TrimSpace(dir), "asc"),
	}
}
