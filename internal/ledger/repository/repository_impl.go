package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/codemart/internal/ledger/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertAccountIfAbsent(ctx context.Context, db *gorm.DB, account *domain.PointAccount) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "currency"}},
			DoNothing: true,
		}).
		Create(account).Error
}

func (r *repo) FindAccount(ctx context.Context, db *gorm.DB, userID snowflake.ID, currency domain.Currency) (*domain.PointAccount, error) {
	return r.findAccount(db.WithContext(ctx), userID, currency)
}

func (r *repo) FindAccountByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PointAccount, error) {
	var accounts []domain.PointAccount
	if err := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&accounts).Error; err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

func (r *repo) FindAccountForUpdate(ctx context.Context, db *gorm.DB, userID snowflake.ID, currency domain.Currency) (*domain.PointAccount, error) {
	return r.findAccount(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID, currency)
}

func (r *repo) findAccount(db *gorm.DB, userID snowflake.ID, currency domain.Currency) (*domain.PointAccount, error) {
	var accounts []domain.PointAccount
	err := db.
		Where("user_id = ? AND currency = ?", userID, currency).
		Limit(1).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

func (r *repo) ListAccounts(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]*domain.PointAccount, error) {
	var accounts []*domain.PointAccount
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("currency asc").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) UpdateBalances(ctx context.Context, db *gorm.DB, account *domain.PointAccount, expectedVersion int64) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE point_accounts
		 SET available = ?, frozen = ?, total_earned = ?, total_spent = ?, version = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		account.Available,
		account.Frozen,
		account.TotalEarned,
		account.TotalSpent,
		account.Version,
		account.UpdatedAt,
		account.ID,
		expectedVersion,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, entry *domain.PointTransaction) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, filter domain.TransactionFilter) ([]*domain.PointTransaction, error) {
	var entries []*domain.PointTransaction
	stmt := db.WithContext(ctx).
		Model(&domain.PointTransaction{}).
		Where("user_id = ?", filter.UserID)
	if filter.Currency != "" {
		stmt = stmt.Where("currency = ?", filter.Currency)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.ReferenceID != 0 {
		stmt = stmt.Where("reference_id = ?", filter.ReferenceID)
	}
	if filter.From != nil {
		stmt = stmt.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("created_at < ?", *filter.To)
	}
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Order("id desc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) ListAccountEntries(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]domain.PointTransaction, error) {
	var entries []domain.PointTransaction
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) SumByType(ctx context.Context, db *gorm.DB, userID snowflake.ID, from, to *time.Time) ([]domain.TypeTotal, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.PointTransaction{}).
		Select("currency, type, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND status = ?", userID, domain.StatusSuccess).
		Where("type IN ?", []domain.TransactionType{domain.TypeIncome, domain.TypeExpense})
	if from != nil {
		stmt = stmt.Where("created_at >= ?", *from)
	}
	if to != nil {
		stmt = stmt.Where("created_at < ?", *to)
	}

	var totals []domain.TypeTotal
	if err := stmt.Group("currency, type").Scan(&totals).Error; err != nil {
		return nil, err
	}
	for i := range totals {
		totals[i].Total = totals[i].Total.Round(4)
	}
	return totals, nil
}
