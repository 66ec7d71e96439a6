package repository

import (
	"strings"

	"github.com/novameet/meeting-agent-service/internal/config"
	"gorm.io/gorm"
)

// normalizePage clamps page and pageSize into the configured bounds.
func normalizePage(page, pageSize int) (int, int) {
	if page < config.DefaultPage {
		page = config.DefaultPage
	}
	if pageSize == 0 {
		pageSize = config.DefaultPageSize
	}
	if pageSize < config.MinPageSize {
		pageSize = config.MinPageSize
	}
	if pageSize > config.MaxPageSize {
		pageSize = config.MaxPageSize
	}
	return page, pageSize
}

// paginate applies limit/offset for a 1-based page.
func paginate(q *gorm.DB, page, pageSize int) *gorm.DB {
	return q.Limit(pageSize).Offset((page - 1) * pageSize)
}

// searchByName applies a case-insensitive substring match on name. LOWER
// LIKE is used instead of ILIKE so the predicate behaves identically on
// PostgreSQL and the SQLite driver used in tests.
func searchByName(q *gorm.DB, search string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" {
		return q
	}
	return q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
}

// orderNewestFirst orders by creation time descending with id descending as
// a tie-break, so pagination stays deterministic when rows share a
// creation timestamp.
func orderNewestFirst(q *gorm.DB) *gorm.DB {
	return q.Order("created_at DESC").Order("id DESC")
}
