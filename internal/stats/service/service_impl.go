package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/codemart/internal/actor"
	"github.com/smallbiznis/codemart/internal/authorization"
	"github.com/smallbiznis/codemart/internal/clock"
	ledgerdomain "github.com/smallbiznis/codemart/internal/ledger/domain"
	"github.com/smallbiznis/codemart/internal/stats/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	perspectiveBuyer  = "buyer"
	perspectiveSeller = "seller"

	defaultSource = "web"
)

// stored order statuses
const (
	statusPending int16 = iota
	statusPaid
	statusCompleted
	statusCancelled
	statusRefunded
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Ledger   ledgerdomain.Service  `optional:"true"`
	Clock    clock.Clock           `optional:"true"`
	AuthzSvc authorization.Service `optional:"true"`
	Cache    *Cache                `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	ledger   ledgerdomain.Service
	clock    clock.Clock
	authzSvc authorization.Service
	cache    *Cache
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	statsCache := p.Cache
	if statsCache == nil {
		statsCache = NewCache()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("stats.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		ledger:   p.Ledger,
		clock:    clk,
		authzSvc: p.AuthzSvc,
		cache:    statsCache,
	}
}

func (s *Service) UserOrderStats(ctx context.Context, req domain.UserStatsRequest) (domain.UserOrderStats, error) {
	userID := req.UserID
	if userID == 0 {
		userID = req.Caller.UserID
	}
	if userID == 0 {
		return domain.UserOrderStats{}, domain.ErrInvalidUser
	}
	perspective := strings.ToLower(strings.TrimSpace(req.Perspective))
	if perspective == "" {
		perspective = perspectiveBuyer
	}
	if perspective != perspectiveBuyer && perspective != perspectiveSeller {
		return domain.UserOrderStats{}, domain.ErrInvalidPerspective
	}
	if !req.Caller.IsSystem() && req.Caller.UserID != userID {
		return domain.UserOrderStats{}, domain.ErrForbidden
	}
	if err := s.authorize(ctx, req.Caller, authorization.ActionStatsView); err != nil {
		return domain.UserOrderStats{}, err
	}

	cached, gen, ok := s.cache.user(userID, perspective)
	if ok {
		return cached, nil
	}

	filter := domain.OrderFilter{}
	if perspective == perspectiveSeller {
		filter.SellerID = userID
	} else {
		filter.BuyerID = userID
	}
	all, err := s.repo.AggregateOrders(ctx, s.db, filter)
	if err != nil {
		return domain.UserOrderStats{}, err
	}

	now := s.clock.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	filter.From = &monthStart
	filter.To = &monthEnd
	monthly, err := s.repo.AggregateOrders(ctx, s.db, filter)
	if err != nil {
		return domain.UserOrderStats{}, err
	}

	stats := summarize(all)
	stats.UserID = userID
	stats.Perspective = perspective
	stats.GeneratedAt = now
	for _, agg := range monthly {
		stats.MonthlyOrders += agg.Count
		stats.MonthlyAmount = stats.MonthlyAmount.Add(agg.Total)
	}

	if s.ledger != nil {
		totals, err := s.ledger.Summary(ctx, userID, nil, nil)
		if err != nil {
			return domain.UserOrderStats{}, err
		}
		for _, t := range totals {
			if t.Currency == ledgerdomain.CurrencyPoints {
				stats.PointsIncome = t.Income
				stats.PointsExpense = t.Expense
			}
		}
	}

	s.cache.storeUser(userID, perspective, gen, stats)
	return stats, nil
}

// summarize folds per-status aggregates into counts, amounts and rates.
func summarize(aggs []domain.StatusAggregate) domain.UserOrderStats {
	stats := domain.UserOrderStats{
		TotalAmount:      decimal.Zero,
		AverageAmount:    decimal.Zero,
		MinAmount:        decimal.Zero,
		MaxAmount:        decimal.Zero,
		MonthlyAmount:    decimal.Zero,
		CompletionRate:   decimal.Zero,
		CancellationRate: decimal.Zero,
		PointsIncome:     decimal.Zero,
		PointsExpense:    decimal.Zero,
	}

	for i, agg := range aggs {
		stats.TotalOrders += agg.Count
		stats.TotalAmount = stats.TotalAmount.Add(agg.Total)
		if i == 0 || agg.MinAmount.LessThan(stats.MinAmount) {
			stats.MinAmount = agg.MinAmount
		}
		if i == 0 || agg.MaxAmount.GreaterThan(stats.MaxAmount) {
			stats.MaxAmount = agg.MaxAmount
		}

		switch agg.Status {
		case statusPending:
			stats.PendingOrders = agg.Count
		case statusPaid:
			stats.PaidOrders = agg.Count
		case statusCompleted:
			stats.CompletedOrders = agg.Count
		case statusCancelled:
			stats.CancelledOrders = agg.Count
		case statusRefunded:
			stats.RefundedOrders = agg.Count
		}
	}

	if stats.TotalOrders == 0 {
		return stats
	}
	total := decimal.NewFromInt(stats.TotalOrders)
	stats.AverageAmount = stats.TotalAmount.Div(total).Round(4)
	stats.CompletionRate = ratio(stats.CompletedOrders, total)
	stats.CancellationRate = ratio(stats.CancelledOrders, total)
	return stats
}

func ratio(part int64, total decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(part).Div(total).Round(4)
}

func (s *Service) DownloadStatistics(ctx context.Context, req domain.DownloadStatsRequest) (domain.DownloadStatistics, error) {
	if req.ProjectID == 0 {
		return domain.DownloadStatistics{}, domain.ErrInvalidProject
	}
	if req.From != nil && req.To != nil && !req.From.Before(*req.To) {
		return domain.DownloadStatistics{}, domain.ErrInvalidTimeRange
	}
	if !req.Caller.IsSystem() {
		if req.Caller.UserID == 0 {
			return domain.DownloadStatistics{}, domain.ErrForbidden
		}
		owner, err := s.repo.IsProjectSeller(ctx, s.db, req.ProjectID, req.Caller.UserID)
		if err != nil {
			return domain.DownloadStatistics{}, err
		}
		if !owner {
			return domain.DownloadStatistics{}, domain.ErrForbidden
		}
	}
	if err := s.authorize(ctx, req.Caller, authorization.ActionStatsView); err != nil {
		return domain.DownloadStatistics{}, err
	}

	cached, gen, ok := s.cache.project(req.ProjectID, req.From, req.To)
	if ok {
		return cached, nil
	}

	filter := domain.DownloadFilter{ProjectID: req.ProjectID, From: req.From, To: req.To}
	total, unique, err := s.repo.CountDownloads(ctx, s.db, filter)
	if err != nil {
		return domain.DownloadStatistics{}, err
	}
	sources, err := s.repo.CountDownloadsBySource(ctx, s.db, filter)
	if err != nil {
		return domain.DownloadStatistics{}, err
	}
	times, err := s.repo.ListDownloadTimes(ctx, s.db, filter)
	if err != nil {
		return domain.DownloadStatistics{}, err
	}

	stats := domain.DownloadStatistics{
		ProjectID:         req.ProjectID,
		TotalDownloads:    total,
		UniqueDownloaders: unique,
		BySource:          make(map[string]int64, len(sources)),
		ByDate:            bucketByDate(times),
		From:              req.From,
		To:                req.To,
	}
	for _, src := range sources {
		stats.BySource[src.Source] = src.Count
	}

	s.cache.storeProject(req.ProjectID, req.From, req.To, gen, stats)
	return stats, nil
}

// bucketByDate counts ascending timestamps per UTC calendar date.
func bucketByDate(times []time.Time) []domain.DateCount {
	out := make([]domain.DateCount, 0)
	for _, t := range times {
		date := t.UTC().Format(time.DateOnly)
		if n := len(out); n > 0 && out[n-1].Date == date {
			out[n-1].Count++
			continue
		}
		out = append(out, domain.DateCount{Date: date, Count: 1})
	}
	return out
}

func (s *Service) RecordDownload(ctx context.Context, req domain.RecordDownloadRequest) (domain.DownloadRecord, error) {
	if req.UserID == 0 {
		return domain.DownloadRecord{}, domain.ErrInvalidUser
	}
	if req.ProjectID == 0 {
		return domain.DownloadRecord{}, domain.ErrInvalidProject
	}
	source := strings.ToLower(strings.TrimSpace(req.Source))
	if source == "" {
		source = defaultSource
	}

	orderID, ok, err := s.repo.HasCompletedOrder(ctx, s.db, req.UserID, req.ProjectID)
	if err != nil {
		return domain.DownloadRecord{}, err
	}
	if !ok {
		return domain.DownloadRecord{}, domain.ErrNotEntitled
	}

	record := domain.DownloadRecord{
		ID:        s.genID.Generate(),
		ProjectID: req.ProjectID,
		UserID:    req.UserID,
		OrderID:   orderID,
		Source:    source,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertDownload(ctx, s.db, &record); err != nil {
		return domain.DownloadRecord{}, err
	}

	s.InvalidateProject(req.ProjectID)
	s.log.Debug("download recorded",
		zap.String("project_id", req.ProjectID.String()),
		zap.String("source", source),
	)
	return record, nil
}

func (s *Service) InvalidateUser(userID snowflake.ID) {
	s.cache.InvalidateUser(userID)
}

func (s *Service) InvalidateProject(projectID snowflake.ID) {
	s.cache.InvalidateProject(projectID)
}

func (s *Service) authorize(ctx context.Context, caller actor.Actor, action string) error {
	if s.authzSvc == nil {
		return nil
	}
	return s.authzSvc.Authorize(ctx, caller, action)
}

func timeKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339Nano)
}
