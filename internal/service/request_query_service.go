package service

import (
	"context"
	"fmt"

	"assetdesk/internal/model"
	"assetdesk/internal/repository"

	"github.com/google/uuid"
)

// RequestListFilter mirrors the query params the list screens send.
// RequestedBy/RequestedTo/Department scope the listing; Search matches the
// referenced asset's name or tag.
type RequestListFilter struct {
	RequestedBy  string
	RequestedTo  string
	DepartmentID string
	Type         string
	Status       string
	Search       string
	Page         int
	Limit        int
}

// Pagination is shaped for infinite-scroll consumers: HasMore tells the
// client whether another page exists without a second round trip.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

// RequestCounts feeds the dashboard summary cards.
type RequestCounts struct {
	Total    int64            `json:"total"`
	Detailed map[string]int64 `json:"detailed"`
}

type RequestListResult struct {
	Data       []RequestResponse `json:"data"`
	Pagination Pagination        `json:"pagination"`
	Counts     RequestCounts     `json:"counts"`
}

// RequestQueryService serves the read side of the workflow: paginated,
// filtered listings plus the counts-by-type aggregate.
type RequestQueryService interface {
	List(ctx context.Context, filter RequestListFilter) (*RequestListResult, error)
	Counts(ctx context.Context, filter RequestListFilter) (*RequestCounts, error)
}

type requestQueryService struct {
	requests repository.RequestRepository
}

func NewRequestQueryService(requests repository.RequestRepository) RequestQueryService {
	return &requestQueryService{requests: requests}
}

func (s *requestQueryService) List(ctx context.Context, filter RequestListFilter) (*RequestListResult, error) {
	repoFilter, err := toRepoFilter(filter)
	if err != nil {
		return nil, err
	}

	page := filter.Page
	limit := filter.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	requests, total, err := s.requests.List(ctx, repoFilter, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	counts, err := s.countsFor(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	items := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, *toRequestResponse(&requests[i]))
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &RequestListResult{
		Data: items,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasMore:    page < totalPages,
		},
		Counts: *counts,
	}, nil
}

func (s *requestQueryService) Counts(ctx context.Context, filter RequestListFilter) (*RequestCounts, error) {
	repoFilter, err := toRepoFilter(filter)
	if err != nil {
		return nil, err
	}
	return s.countsFor(ctx, repoFilter)
}

func (s *requestQueryService) countsFor(ctx context.Context, filter repository.RequestFilter) (*RequestCounts, error) {
	// Counts ignore the type filter so the summary cards always show the
	// full breakdown for the current scope.
	countFilter := filter
	countFilter.Type = ""

	detailed, err := s.requests.CountByType(ctx, countFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate request counts: %w", err)
	}

	var total int64
	for _, t := range model.RequestTypes {
		total += detailed[t]
	}

	return &RequestCounts{Total: total, Detailed: detailed}, nil
}

func toRepoFilter(filter RequestListFilter) (repository.RequestFilter, error) {
	var repoFilter repository.RequestFilter

	parse := func(field, value string) (*uuid.UUID, error) {
		if value == "" {
			return nil, nil
		}
		parsed, err := uuid.Parse(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s filter: %w", field, err)
		}
		return &parsed, nil
	}

	var err error
	if repoFilter.RequestedBy, err = parse("requestedBy", filter.RequestedBy); err != nil {
		return repoFilter, err
	}
	if repoFilter.RequestedTo, err = parse("assignedTo", filter.RequestedTo); err != nil {
		return repoFilter, err
	}
	if repoFilter.DepartmentID, err = parse("department", filter.DepartmentID); err != nil {
		return repoFilter, err
	}

	repoFilter.Type = filter.Type
	repoFilter.Status = filter.Status
	repoFilter.Search = filter.Search
	return repoFilter, nil
}
