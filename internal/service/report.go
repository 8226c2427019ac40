package service

import (
	"context"
	"errors"
	"time"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/model"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/repository"
)

// Granularity selects how report window endpoints are truncated.
type Granularity string

// Supported report granularities.
const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// ErrInvalidGranularity is returned for an unrecognized granularity.
var ErrInvalidGranularity = errors.New("granularity must be day, month or year")

// Window converts an inclusive [start, end] date range into a
// half-open timestamp range [from, to): start is truncated down to
// the beginning of its granularity unit, and to is the beginning of
// the unit after the one containing end. Typed time arithmetic, no
// string slicing.
func Window(start, end time.Time, g Granularity) (from, to time.Time, err error) {
	switch g {
	case GranularityDay:
		from = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		to = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)
	case GranularityMonth:
		from = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
		to = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location()).AddDate(0, 1, 0)
	case GranularityYear:
		from = time.Date(start.Year(), 1, 1, 0, 0, 0, 0, start.Location())
		to = time.Date(end.Year(), 1, 1, 0, 0, 0, 0, end.Location()).AddDate(1, 0, 0)
	default:
		return time.Time{}, time.Time{}, ErrInvalidGranularity
	}
	return from, to, nil
}

// ReportService aggregates committed history: confirmed orders and
// approved top-ups, filtered by their terminal timestamp. Pure read.
type ReportService struct {
	orders *repository.OrderRepository
	topups *repository.TopupRepository
}

// NewReportService creates a new ReportService instance.
func NewReportService(orders *repository.OrderRepository, topups *repository.TopupRepository) *ReportService {
	return &ReportService{orders: orders, topups: topups}
}

// Run aggregates over the inclusive [start, end] range at the given
// granularity.
func (s *ReportService) Run(ctx context.Context, start, end time.Time, g Granularity) (*model.Report, error) {
	from, to, err := Window(start, end, g)
	if err != nil {
		return nil, err
	}

	orderTotal, orderCount, err := s.orders.Aggregate(ctx, from, to)
	if err != nil {
		return nil, err
	}
	topupTotal, topupCount, err := s.topups.Aggregate(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return &model.Report{
		OrderTotal: orderTotal,
		OrderCount: orderCount,
		TopupTotal: topupTotal,
		TopupCount: topupCount,
	}, nil
}
