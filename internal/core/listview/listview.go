// Package listview holds the local list state behind every dashboard table:
// status filter, text search, sort and pagination over a fetched dataset.
package listview

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"loan-console/internal/core/domain"
	"loan-console/internal/pkg/pagination"
)

// Sort fields
const (
	SortAmount    = "amount"
	SortFullName  = "fullName"
	SortCreatedAt = "createdAt"
)

// Direction is a sort direction
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection returns Asc unless s is "desc"
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// DateLayout is the created-date format matched by search
const DateLayout = "January 02, 2006"

// State is the list state of one dashboard table. It is not safe for
// concurrent use; the owning dashboard serializes access.
type State struct {
	items        []domain.LoanRecord
	statusFilter domain.LoanStatus
	search       string
	sortField    string
	sortDir      Direction
	page         int
	pageSize     int
	collator     *collate.Collator
}

// View is the derived, render-ready slice of the state
type View struct {
	Items        []domain.LoanRecord   `json:"items,omitempty"`
	Count        int                   `json:"count"`
	Meta         pagination.Meta       `json:"meta"`
	Pages        []pagination.PageLink `json:"pages"`
	StatusFilter domain.LoanStatus     `json:"statusFilter,omitempty"`
	Search       string                `json:"search,omitempty"`
	SortField    string                `json:"sortField"`
	SortOrder    Direction             `json:"sortOrder"`
}

// New creates an empty state sorted by creation date, newest first
func New(pageSize int) *State {
	if pageSize < 1 {
		pageSize = pagination.DefaultLimit
	}
	return &State{
		sortField: SortCreatedAt,
		sortDir:   Desc,
		page:      1,
		pageSize:  pageSize,
		collator:  collate.New(language.English, collate.IgnoreCase),
	}
}

// SetItems replaces the dataset, keeping the current page when still valid
func (s *State) SetItems(items []domain.LoanRecord) {
	s.items = append([]domain.LoanRecord(nil), items...)
	s.clamp()
}

// Items returns a copy of the unfiltered dataset in fetch order
func (s *State) Items() []domain.LoanRecord {
	return append([]domain.LoanRecord(nil), s.items...)
}

// Item looks a record up by id
func (s *State) Item(id domain.EntityID) (domain.LoanRecord, bool) {
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.LoanRecord{}, false
}

// Patch sets the status of a single record in place
func (s *State) Patch(id domain.EntityID, status domain.LoanStatus) bool {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Status = status
			s.clamp()
			return true
		}
	}
	return false
}

// Replace swaps a record for an updated copy with the same id
func (s *State) Replace(rec domain.LoanRecord) bool {
	for i := range s.items {
		if s.items[i].ID == rec.ID {
			s.items[i] = rec
			s.clamp()
			return true
		}
	}
	return false
}

// SetPage moves to page, clamped to the valid range
func (s *State) SetPage(page int) {
	s.page = page
	s.clamp()
}

// SetPageSize changes the page size and returns to page 1
func (s *State) SetPageSize(size int) {
	if size < 1 {
		return
	}
	s.pageSize = size
	s.page = 1
}

// PageSize returns the current page size
func (s *State) PageSize() int {
	return s.pageSize
}

// ToggleSort selects field. Selecting the current field flips direction; a
// new field starts ascending.
func (s *State) ToggleSort(field string) {
	field = normalizeField(field)
	if field == s.sortField {
		if s.sortDir == Asc {
			s.sortDir = Desc
		} else {
			s.sortDir = Asc
		}
	} else {
		s.sortField = field
		s.sortDir = Asc
	}
	s.page = 1
}

// SetSort sets field and direction explicitly
func (s *State) SetSort(field string, dir Direction) {
	s.sortField = normalizeField(field)
	s.sortDir = dir
	s.page = 1
}

// Sort returns the current sort field and direction
func (s *State) Sort() (string, Direction) {
	return s.sortField, s.sortDir
}

// SetStatusFilter restricts the list to one status; "" clears the filter
func (s *State) SetStatusFilter(status domain.LoanStatus) {
	s.statusFilter = status
	s.page = 1
}

// StatusFilter returns the active status filter
func (s *State) StatusFilter() domain.LoanStatus {
	return s.statusFilter
}

// SetSearch sets the free-text search
func (s *State) SetSearch(text string) {
	s.search = strings.TrimSpace(text)
	s.page = 1
}

// Snapshot computes the visible page
func (s *State) Snapshot() View {
	visible := s.visible()
	params := &pagination.Params{Page: s.page, Limit: s.pageSize}
	meta := pagination.GetMeta(params, len(visible))

	start := (meta.Page - 1) * s.pageSize
	end := min(start+s.pageSize, len(visible))
	pageItems := []domain.LoanRecord{}
	if start < end {
		pageItems = append(pageItems, visible[start:end]...)
	}

	return View{
		Items:        pageItems,
		Count:        len(visible),
		Meta:         *meta,
		Pages:        pagination.Window(meta.Page, meta.TotalPages),
		StatusFilter: s.statusFilter,
		Search:       s.search,
		SortField:    s.sortField,
		SortOrder:    s.sortDir,
	}
}

// visible applies filter, search and sort
func (s *State) visible() []domain.LoanRecord {
	needle := strings.ToLower(s.search)
	out := make([]domain.LoanRecord, 0, len(s.items))
	for _, it := range s.items {
		if s.statusFilter != "" && it.Status != s.statusFilter {
			continue
		}
		if needle != "" && !matches(it, needle) {
			continue
		}
		out = append(out, it)
	}

	less := s.less()
	if less == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if s.sortDir == Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func (s *State) less() func(a, b domain.LoanRecord) bool {
	switch s.sortField {
	case SortAmount:
		return func(a, b domain.LoanRecord) bool { return a.Amount.LessThan(b.Amount) }
	case SortFullName:
		return func(a, b domain.LoanRecord) bool {
			return s.collator.CompareString(a.ApplicantName, b.ApplicantName) < 0
		}
	case SortCreatedAt:
		return func(a, b domain.LoanRecord) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
	return nil
}

func (s *State) clamp() {
	count := len(s.visible())
	s.page = pagination.Clamp(s.page, pagination.PageCount(count, s.pageSize))
}

// matches reports whether needle (lower case) occurs in any searchable field
func matches(it domain.LoanRecord, needle string) bool {
	fields := []string{
		it.ApplicantName,
		it.Amount.String(),
		it.CreatedAt.Format(DateLayout),
		string(it.Status),
		it.OfficerLabel(),
		it.Reason,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func normalizeField(field string) string {
	switch field {
	case "name", "applicantName":
		return SortFullName
	case "date", "dateApplied":
		return SortCreatedAt
	}
	return field
}
