package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLStore is a ChipStore backed by SQLite through gorm. Each operation runs
// in its own transaction.
type SQLStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

var _ ChipStore = (*SQLStore)(nil)

// Open opens or creates the ledger database at path and migrates its schema.
// Use ":memory:" for a throwaway ledger.
func Open(path string, logger zerolog.Logger) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection serialises transfers.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Account{}, &Stake{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &SQLStore{
		db:     db,
		logger: logger.With().Str("component", "ledger").Logger(),
	}, nil
}

// Close releases the database.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) FetchBalance(ctx context.Context, user string) (int, bool, error) {
	var acct Account
	err := s.db.WithContext(ctx).First(&acct, "user_id = ?", user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return acct.Chips, true, nil
}

func (s *SQLStore) CreateAccount(ctx context.Context, user string, initial int) error {
	if initial < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, initial)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acct Account
		err := tx.First(&acct, "user_id = ?", user).Error
		if err == nil {
			return ErrAccountExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(&Account{UserID: user, Chips: initial}).Error; err != nil {
			return err
		}
		s.logger.Info().Str("user", user).Int("chips", initial).Msg("Account created")
		return nil
	})
}

func (s *SQLStore) TransferToTable(ctx context.Context, user string, limit int, tableID string) (int, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAmount, limit)
	}
	var moved int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := loadAccount(tx, user)
		if err != nil {
			return err
		}
		moved = min(acct.Chips, limit)
		if moved <= 0 {
			return ErrNoFunds
		}
		if err := tx.Model(&acct).Update("chips", acct.Chips-moved).Error; err != nil {
			return err
		}

		var stake Stake
		err = tx.First(&stake, "user_id = ? AND table_id = ?", user, tableID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&Stake{UserID: user, TableID: tableID, Chips: moved}).Error
		case err != nil:
			return err
		default:
			return tx.Model(&stake).Update("chips", stake.Chips+moved).Error
		}
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug().Str("user", user).Str("table", tableID).Int("chips", moved).Msg("Transferred to table")
	return moved, nil
}

func (s *SQLStore) ReturnFromTable(ctx context.Context, user, tableID string, chips int) error {
	if chips < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, chips)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := loadAccount(tx, user)
		if err != nil {
			return err
		}
		if err := tx.Model(&acct).Update("chips", acct.Chips+chips).Error; err != nil {
			return err
		}

		var stake Stake
		err = tx.First(&stake, "user_id = ? AND table_id = ?", user, tableID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil
		case err != nil:
			return err
		case stake.Chips <= chips:
			return tx.Delete(&stake).Error
		default:
			return tx.Model(&stake).Update("chips", stake.Chips-chips).Error
		}
	})
	if err != nil {
		return err
	}
	s.logger.Debug().Str("user", user).Str("table", tableID).Int("chips", chips).Msg("Returned from table")
	return nil
}

func (s *SQLStore) AdjustBalance(ctx context.Context, user string, delta int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := loadAccount(tx, user)
		if err != nil {
			return err
		}
		if acct.Chips+delta < 0 {
			return ErrInsufficientStake
		}
		return tx.Model(&acct).Update("chips", acct.Chips+delta).Error
	})
}

// Stakes returns the chips user has outstanding per table.
func (s *SQLStore) Stakes(ctx context.Context, user string) (map[string]int, error) {
	var stakes []Stake
	if err := s.db.WithContext(ctx).Where("user_id = ?", user).Find(&stakes).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(stakes))
	for _, st := range stakes {
		out[st.TableID] = st.Chips
	}
	return out, nil
}

func loadAccount(tx *gorm.DB, user string) (Account, error) {
	var acct Account
	err := tx.First(&acct, "user_id = ?", user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return acct, ErrUnknownAccount
	}
	return acct, err
}
