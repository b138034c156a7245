package audit

import (
	"context"
	"fmt"

	"github.com/meridian-hq/meridian-admin/internal/shared"
)

var errInvalidRange = shared.ValidationError(map[string]string{
	"date_range": "start date must not be after end date",
})

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Reader loads audit rows with their actors joined.
type Reader interface {
	ListEntries(ctx context.Context, params ListParams) ([]Row, error)
}

// Service mengoordinasikan pembacaan audit log dengan paging.
type Service struct {
	repo Reader
}

// NewService membuat service audit baru.
func NewService(repo Reader) *Service {
	return &Service{repo: repo}
}

// List mengambil satu halaman audit log sesuai filter.
func (s *Service) List(ctx context.Context, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	if err := validateRange(filters); err != nil {
		return Result{}, err
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	// Fetch one extra row to detect a next page.
	params := ListParams{
		Filters: filters,
		Offset:  (page - 1) * pageSize,
		Limit:   pageSize + 1,
	}

	rows, err := s.repo.ListEntries(ctx, params)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

func validateRange(filters Filters) error {
	if filters.From.IsZero() || filters.To.IsZero() {
		return nil
	}
	if filters.To.Before(filters.From) {
		return errInvalidRange
	}
	return nil
}
