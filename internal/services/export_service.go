package services

import (
	"errors"
	"time"

	"github.com/gocarina/gocsv"
	"gorm.io/gorm"

	apperrors "quid/internal/errors"
	"quid/internal/models"
	"quid/internal/snapshot"
)

// exportService moves a user's full state in and out of the database as
// versioned snapshots, CSV exports, and on-disk backups.
type exportService struct {
	db             *gorm.DB
	accountService AccountServicer
	store          *snapshot.Store
}

// NewExportService creates a new ExportServicer backed by the given
// snapshot store for disk backups.
func NewExportService(db *gorm.DB, accountService AccountServicer, store *snapshot.Store) ExportServicer {
	return &exportService{db: db, accountService: accountService, store: store}
}

// ExportBundle collects every collection of the user into one snapshot.
func (s *exportService) ExportBundle(userID string) (*snapshot.Bundle, error) {
	b := &snapshot.Bundle{Version: snapshot.Version, ExportedAt: time.Now()}

	if err := s.db.Where("user_id = ?", userID).Find(&b.Accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Where("user_id = ?", userID).Find(&b.Categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Where("user_id = ?", userID).Order("date asc").Find(&b.Transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Where("user_id = ?", userID).Find(&b.Budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Where("user_id = ?", userID).Find(&b.Pools).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return b, nil
}

// transactionCSVRow is the flat CSV projection of one transaction.
// Amounts are in pence.
type transactionCSVRow struct {
	ID                string `csv:"id"`
	Date              string `csv:"date"`
	Type              string `csv:"type"`
	Account           string `csv:"account"`
	ToAccount         string `csv:"to_account"`
	Category          string `csv:"category"`
	Description       string `csv:"description"`
	Amount            int64  `csv:"amount_pence"`
	IsSplit           bool   `csv:"is_split"`
	SplitFriendName   string `csv:"split_friend_name"`
	SplitFriendAmount int64  `csv:"split_friend_amount_pence"`
	Pool              string `csv:"pool"`
}

// ExportCSV renders the user's transactions as CSV, oldest first.
// Account, category, and pool references are resolved to names; dangling
// references fall back to "Other".
func (s *exportService) ExportCSV(userID string) ([]byte, error) {
	b, err := s.ExportBundle(userID)
	if err != nil {
		return nil, err
	}

	accountNames := make(map[string]string, len(b.Accounts))
	for i := range b.Accounts {
		accountNames[b.Accounts[i].ID] = b.Accounts[i].Name
	}
	categoryNames := make(map[string]string, len(b.Categories))
	for i := range b.Categories {
		categoryNames[b.Categories[i].ID] = b.Categories[i].Name
	}
	poolNames := make(map[string]string, len(b.Pools))
	for i := range b.Pools {
		poolNames[b.Pools[i].ID] = b.Pools[i].Name
	}

	lookup := func(names map[string]string, id *string) string {
		if id == nil {
			return ""
		}
		if name, ok := names[*id]; ok {
			return name
		}
		return "Other"
	}

	rows := make([]transactionCSVRow, 0, len(b.Transactions))
	for i := range b.Transactions {
		t := &b.Transactions[i]
		rows = append(rows, transactionCSVRow{
			ID:                t.ID,
			Date:              t.Date.Format("2006-01-02"),
			Type:              string(t.Type),
			Account:           accountNames[t.AccountID],
			ToAccount:         lookup(accountNames, t.ToAccountID),
			Category:          lookup(categoryNames, t.CategoryID),
			Description:       t.Description,
			Amount:            t.Amount,
			IsSplit:           t.IsSplit,
			SplitFriendName:   t.SplitFriendName,
			SplitFriendAmount: t.SplitFriendAmount,
			Pool:              lookup(poolNames, t.PoolID),
		})
	}

	out, err := gocsv.MarshalBytes(rows)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return out, nil
}

// ImportBundle replaces the user's collections wholesale with the
// bundle's contents and rederives balances. The import is all or
// nothing: a failed write rolls everything back.
func (s *exportService) ImportBundle(userID string, b *snapshot.Bundle) error {
	if b == nil {
		return apperrors.ErrSnapshotInvalid
	}
	if b.Version != snapshot.Version {
		return apperrors.ErrSnapshotVersion
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		// Hard delete: the incoming bundle may reuse ids that soft-deleted
		// rows still hold.
		for _, model := range []interface{}{
			&models.Transaction{}, &models.Budget{}, &models.Pool{}, &models.Category{}, &models.Account{},
		} {
			if err := tx.Unscoped().Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		for i := range b.Accounts {
			b.Accounts[i].UserID = userID
			if err := tx.Create(&b.Accounts[i]).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		for i := range b.Categories {
			b.Categories[i].UserID = userID
			if err := tx.Create(&b.Categories[i]).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		// Pools before transactions: transactions.pool_id references pools.
		for i := range b.Pools {
			b.Pools[i].UserID = userID
			if err := tx.Create(&b.Pools[i]).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		for i := range b.Budgets {
			b.Budgets[i].UserID = userID
			if err := tx.Create(&b.Budgets[i]).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		// Recurrence origins before generated instances, so that
		// parent_transaction_id always points at an existing row even when
		// an origin and its instance share a date.
		for i := range b.Transactions {
			if b.Transactions[i].ParentTransactionID != nil {
				continue
			}
			b.Transactions[i].UserID = userID
			if err := tx.Create(&b.Transactions[i]).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		for i := range b.Transactions {
			if b.Transactions[i].ParentTransactionID == nil {
				continue
			}
			b.Transactions[i].UserID = userID
			if err := tx.Create(&b.Transactions[i]).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		return s.accountService.RecalculateBalances(tx, userID)
	})
}

// BackupToDisk writes the user's collections to the snapshot store, one
// JSON file per collection, and returns the backup directory.
func (s *exportService) BackupToDisk(userID string) (string, error) {
	if s.store == nil {
		return "", apperrors.WithMessage(apperrors.ErrInternalServer, "no snapshot store configured")
	}

	b, err := s.ExportBundle(userID)
	if err != nil {
		return "", err
	}
	if err := s.store.SaveBundle(b); err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.store.Dir, nil
}

// DecodeBundle parses a snapshot document, translating format errors to
// API errors.
func DecodeBundle(data []byte) (*snapshot.Bundle, error) {
	b, err := snapshot.DecodeBytes(data)
	if err != nil {
		if errors.Is(err, snapshot.ErrVersion) {
			return nil, apperrors.ErrSnapshotVersion
		}
		return nil, apperrors.Wrap(apperrors.ErrSnapshotInvalid, err)
	}
	return b, nil
}
