package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/codemart/internal/audit/domain"
	"github.com/smallbiznis/codemart/internal/authorization"
	"github.com/smallbiznis/codemart/internal/clock"
	"github.com/smallbiznis/codemart/internal/errs"
	"github.com/smallbiznis/codemart/internal/ledger/domain"
	"github.com/smallbiznis/codemart/internal/lock"
	obsmetrics "github.com/smallbiznis/codemart/internal/observability/metrics"
	statsdomain "github.com/smallbiznis/codemart/internal/stats/domain"
	"github.com/smallbiznis/codemart/pkg/db"
	"github.com/smallbiznis/codemart/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Locker     lock.Locker
	Clock      clock.Clock             `optional:"true"`
	AuthzSvc   authorization.Service   `optional:"true"`
	AuditSvc   auditdomain.Service     `optional:"true"`
	ObsMetrics *obsmetrics.Metrics     `optional:"true"`
	Stats      statsdomain.Invalidator `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	locker     lock.Locker
	clock      clock.Clock
	authzSvc   authorization.Service
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
	stats      statsdomain.Invalidator
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		locker:     p.Locker,
		clock:      clk,
		authzSvc:   p.AuthzSvc,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
		stats:      p.Stats,
	}
}

func (s *Service) Post(ctx context.Context, tx *gorm.DB, p domain.Posting) (domain.PointTransaction, error) {
	if tx == nil {
		return domain.PointTransaction{}, domain.ErrTransactionRequired
	}
	if err := p.Validate(); err != nil {
		return domain.PointTransaction{}, err
	}

	account, err := s.lockAccount(ctx, tx, p.UserID, p.Currency)
	if err != nil {
		return domain.PointTransaction{}, err
	}

	next, entry, err := account.Apply(p)
	if err != nil {
		return domain.PointTransaction{}, err
	}

	now := s.clock.Now()
	next.UpdatedAt = now
	rows, err := s.repo.UpdateBalances(ctx, tx, &next, account.Version)
	if err != nil {
		return domain.PointTransaction{}, err
	}
	if rows == 0 {
		return domain.PointTransaction{}, domain.ErrAccountConflict
	}

	entry.ID = s.genID.Generate()
	entry.CreatedAt = now
	if err := s.repo.InsertTransaction(ctx, tx, &entry); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.PointTransaction{}, domain.ErrDuplicateEntry
		}
		return domain.PointTransaction{}, err
	}

	s.obsMetrics.RecordLedgerEntry(ctx, string(entry.Type), string(entry.Currency))
	return entry, nil
}

func (s *Service) Available(ctx context.Context, tx *gorm.DB, userID snowflake.ID, currency domain.Currency) (decimal.Decimal, error) {
	if tx == nil {
		tx = s.db
	}
	if !currency.Valid() {
		return decimal.Zero, domain.ErrInvalidCurrency
	}
	account, err := s.repo.FindAccount(ctx, tx, userID, currency)
	if err != nil {
		return decimal.Zero, err
	}
	if account == nil {
		return decimal.Zero, nil
	}
	return account.Available, nil
}

// Grant credits a user's account outside any order.
func (s *Service) Grant(ctx context.Context, req domain.GrantRequest) (domain.PointTransaction, error) {
	if !req.Caller.IsSystem() {
		return domain.PointTransaction{}, domain.ErrGrantForbidden
	}
	if s.authzSvc != nil {
		if err := s.authzSvc.Authorize(ctx, req.Caller, authorization.ActionLedgerGrant); err != nil {
			return domain.PointTransaction{}, err
		}
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "grant"
	}
	posting := domain.Posting{
		UserID:        req.UserID,
		Currency:      req.Currency,
		Type:          domain.TypeIncome,
		Amount:        req.Amount,
		Description:   description,
		ReferenceType: domain.ReferenceGrant,
		ReferenceID:   s.genID.Generate(),
	}
	if err := posting.Validate(); err != nil {
		return domain.PointTransaction{}, err
	}

	release, err := s.locker.Acquire(ctx, lock.AccountKeys(req.UserID)...)
	if err != nil {
		return domain.PointTransaction{}, err
	}
	defer release()

	var entry domain.PointTransaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.Post(ctx, tx, posting)
		return err
	})
	if err != nil {
		s.obsMetrics.RecordFailure(ctx, "ledger.grant", errs.KindOf(err))
		return domain.PointTransaction{}, err
	}

	if s.stats != nil {
		s.stats.InvalidateUser(req.UserID)
	}
	s.log.Info("granted",
		zap.String("user_id", req.UserID.String()),
		zap.String("currency", string(req.Currency)),
		zap.String("amount", req.Amount.String()),
	)
	if s.auditSvc != nil {
		targetID := entry.ID.String()
		if err := s.auditSvc.AuditLog(ctx, req.Caller, "ledger.grant", "point_transaction", &targetID, map[string]any{
			"user_id":     req.UserID.String(),
			"currency":    string(req.Currency),
			"amount":      req.Amount.String(),
			"description": description,
		}); err != nil {
			s.log.Warn("failed to audit grant", zap.Error(err))
		}
	}
	return entry, nil
}

// GetAccount returns the user's account, or an empty unsaved account when none exists yet.
func (s *Service) GetAccount(ctx context.Context, userID snowflake.ID, currency domain.Currency) (domain.PointAccount, error) {
	if userID == 0 {
		return domain.PointAccount{}, domain.ErrInvalidUser
	}
	if !currency.Valid() {
		return domain.PointAccount{}, domain.ErrInvalidCurrency
	}
	account, err := s.repo.FindAccount(ctx, s.db, userID, currency)
	if err != nil {
		return domain.PointAccount{}, err
	}
	if account == nil {
		return domain.NewAccount(0, userID, currency, time.Time{}), nil
	}
	return *account, nil
}

func (s *Service) ListAccounts(ctx context.Context, userID snowflake.ID) ([]domain.PointAccount, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	items, err := s.repo.ListAccounts(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	accounts := make([]domain.PointAccount, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		accounts = append(accounts, *item)
	}
	return accounts, nil
}

func (s *Service) ListTransactions(ctx context.Context, req domain.ListTransactionsRequest) (domain.ListTransactionsResponse, error) {
	if req.UserID == 0 {
		return domain.ListTransactionsResponse{}, domain.ErrInvalidUser
	}
	if req.Currency != "" && !req.Currency.Valid() {
		return domain.ListTransactionsResponse{}, domain.ErrInvalidCurrency
	}
	if req.Type != "" && !req.Type.Valid() {
		return domain.ListTransactionsResponse{}, domain.ErrInvalidType
	}
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return domain.ListTransactionsResponse{}, domain.ErrInvalidTimeRange
	}

	var beforeID snowflake.ID
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListTransactionsResponse{}, domain.ErrInvalidPageToken
		}
		beforeID, err = snowflake.ParseString(cursor.ID)
		if err != nil || beforeID == 0 {
			return domain.ListTransactionsResponse{}, domain.ErrInvalidPageToken
		}
	}

	pageSize := pagination.NormalizePageSize(req.PageSize)
	items, err := s.repo.ListTransactions(ctx, s.db, domain.TransactionFilter{
		UserID:      req.UserID,
		Currency:    req.Currency,
		Type:        req.Type,
		ReferenceID: req.ReferenceID,
		From:        req.From,
		To:          req.To,
		BeforeID:    beforeID,
		Limit:       int(pageSize) + 1,
	})
	if err != nil {
		return domain.ListTransactionsResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.PointTransaction) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})

	entries := make([]domain.PointTransaction, 0, len(items))
	for _, item := range items {
		entries = append(entries, *item)
	}
	return domain.ListTransactionsResponse{PageInfo: pageInfo, Transactions: entries}, nil
}

func (s *Service) VerifyChain(ctx context.Context, accountID snowflake.ID) error {
	account, err := s.repo.FindAccountByID(ctx, s.db, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.ErrAccountNotFound
	}
	entries, err := s.repo.ListAccountEntries(ctx, s.db, accountID)
	if err != nil {
		return err
	}
	if err := domain.VerifyChain(*account, entries); err != nil {
		s.log.Error("ledger chain mismatch",
			zap.String("account_id", accountID.String()),
			zap.Int("entries", len(entries)),
		)
		return fmt.Errorf("account %s: %w", accountID, err)
	}
	return nil
}

func (s *Service) Summary(ctx context.Context, userID snowflake.ID, from, to *time.Time) ([]domain.Totals, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, domain.ErrInvalidTimeRange
	}

	rows, err := s.repo.SumByType(ctx, s.db, userID, from, to)
	if err != nil {
		return nil, err
	}

	byCurrency := map[domain.Currency]*domain.Totals{}
	for _, currency := range []domain.Currency{domain.CurrencyPoints, domain.CurrencyBalance} {
		byCurrency[currency] = &domain.Totals{Currency: currency, Income: decimal.Zero, Expense: decimal.Zero}
	}
	for _, row := range rows {
		totals, ok := byCurrency[row.Currency]
		if !ok {
			continue
		}
		switch row.Type {
		case domain.TypeIncome:
			totals.Income = totals.Income.Add(row.Total)
		case domain.TypeExpense:
			totals.Expense = totals.Expense.Add(row.Total)
		}
	}

	return []domain.Totals{*byCurrency[domain.CurrencyPoints], *byCurrency[domain.CurrencyBalance]}, nil
}

// lockAccount reads the account with a row lock, creating it first when missing.
func (s *Service) lockAccount(ctx context.Context, tx *gorm.DB, userID snowflake.ID, currency domain.Currency) (domain.PointAccount, error) {
	account, err := s.repo.FindAccountForUpdate(ctx, tx, userID, currency)
	if err != nil {
		return domain.PointAccount{}, err
	}
	if account != nil {
		return *account, nil
	}

	fresh := domain.NewAccount(s.genID.Generate(), userID, currency, s.clock.Now())
	if err := s.repo.InsertAccountIfAbsent(ctx, tx, &fresh); err != nil {
		return domain.PointAccount{}, err
	}
	account, err = s.repo.FindAccountForUpdate(ctx, tx, userID, currency)
	if err != nil {
		return domain.PointAccount{}, err
	}
	if account == nil {
		return domain.PointAccount{}, errors.New("point account vanished after insert")
	}
	return *account, nil
}
