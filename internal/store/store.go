package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/iurnickita/eventbilling/internal/model"
	"github.com/iurnickita/eventbilling/internal/store/config"
)

type Store interface {
	EventCreate(ctx context.Context, event model.Event) error
	EventGet(ctx context.Context, id uuid.UUID) (model.Event, error)
	// EventUpdatePricing и EventApplyAdjustment пишут, только если версия
	// в базе равна event.Data.Version. Иначе ErrConflict.
	EventUpdatePricing(ctx context.Context, event model.Event) error
	EventApplyAdjustment(ctx context.Context, event model.Event) error
	PaymentCreate(ctx context.Context, payment model.Payment) error
	PaymentDelete(ctx context.Context, eventID uuid.UUID, paymentID uuid.UUID) error
	Close() error
}

var (
	ErrNoRows        = errors.New("no rows")
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict - мероприятие изменено другим запросом между чтением и записью.
	ErrConflict = errors.New("concurrent update")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type store struct {
	database *sqlx.DB
}

func NewStore(cfg config.Config) (Store, error) {
	db, err := sqlx.Open("pgx", cfg.DBDsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime != "" {
		idle, err := time.ParseDuration(cfg.ConnMaxIdleTime)
		if err != nil {
			return nil, fmt.Errorf("parse conn max idle time: %w", err)
		}
		db.SetConnMaxIdleTime(idle)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err = migrate(ctx, db); err != nil {
		return nil, err
	}

	return &store{database: db}, nil
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	// Таблица мероприятий.
	// Содержит обе схемы цен, активная указана в pricing_scheme.
	// total_amount - кэш, всегда выводится из цен и платежей
	_, err := db.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS events (" +
			" id UUID PRIMARY KEY," +
			" currency VARCHAR (3) NOT NULL," +
			" pricing_scheme VARCHAR (10)," +
			" dish_count INTEGER NOT NULL DEFAULT 0," +
			" price_per_dish NUMERIC (14, 2) NOT NULL DEFAULT 0," +
			" adult_count INTEGER NOT NULL DEFAULT 0," +
			" juvenile_count INTEGER NOT NULL DEFAULT 0," +
			" child_count INTEGER NOT NULL DEFAULT 0," +
			" adult_price NUMERIC (14, 2) NOT NULL DEFAULT 0," +
			" juvenile_price NUMERIC (14, 2) NOT NULL DEFAULT 0," +
			" child_price NUMERIC (14, 2) NOT NULL DEFAULT 0," +
			" quarterly_adjustment_percent NUMERIC (7, 4) NOT NULL DEFAULT 0," +
			" last_adjustment_at TIMESTAMPTZ," +
			" total_amount NUMERIC (16, 2) NOT NULL DEFAULT 0," +
			" created_at TIMESTAMPTZ NOT NULL," +
			" updated_at TIMESTAMPTZ NOT NULL," +
			" version INTEGER NOT NULL DEFAULT 0" +
			" );")
	if err != nil {
		return err
	}

	// таблицы, созданные до появления версии
	_, err = db.ExecContext(ctx,
		"ALTER TABLE events ADD COLUMN IF NOT EXISTS version INTEGER NOT NULL DEFAULT 0;")
	if err != nil {
		return err
	}

	// Таблица платежей.
	// Записи не изменяются, только удаляются.
	// Колонки покрытия NULL, если платеж их не заполнял
	_, err = db.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS event_payments (" +
			" id UUID PRIMARY KEY," +
			" event_id UUID NOT NULL REFERENCES events (id) ON DELETE CASCADE," +
			" amount NUMERIC (16, 2) NOT NULL," +
			" currency VARCHAR (3) NOT NULL," +
			" exchange_rate NUMERIC (14, 4)," +
			" exchange_rate_date TIMESTAMPTZ," +
			" coverage_kind VARCHAR (10)," +
			" plates_covered INTEGER," +
			" price_per_dish_at_payment NUMERIC (14, 2)," +
			" adult_covered INTEGER," +
			" juvenile_covered INTEGER," +
			" child_covered INTEGER," +
			" adult_price_at_payment NUMERIC (14, 2)," +
			" juvenile_price_at_payment NUMERIC (14, 2)," +
			" child_price_at_payment NUMERIC (14, 2)," +
			" paid_at TIMESTAMPTZ NOT NULL" +
			" );")
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS event_payments_event_id_idx ON event_payments (event_id, paid_at DESC);")
	return err
}

func (store *store) Close() error {
	return store.database.Close()
}

func (store *store) EventCreate(ctx context.Context, event model.Event) error {
	_, err := store.database.NamedExecContext(ctx,
		"INSERT INTO events (id, currency, pricing_scheme, dish_count, price_per_dish,"+
			" adult_count, juvenile_count, child_count, adult_price, juvenile_price, child_price,"+
			" quarterly_adjustment_percent, last_adjustment_at, total_amount, created_at, updated_at, version)"+
			" VALUES (:id, :currency, :pricing_scheme, :dish_count, :price_per_dish,"+
			" :adult_count, :juvenile_count, :child_count, :adult_price, :juvenile_price, :child_price,"+
			" :quarterly_adjustment_percent, :last_adjustment_at, :total_amount, :created_at, :updated_at, :version)",
		newEventRow(event))
	if err != nil {
		// Проверка: уже существует
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (store *store) EventGet(ctx context.Context, id uuid.UUID) (model.Event, error) {
	// Мероприятие и платежи читаются из одного снимка
	tx, err := store.database.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return model.Event{}, err
	}
	defer tx.Rollback()

	var row eventRow
	err = tx.GetContext(ctx, &row,
		"SELECT id, currency, pricing_scheme, dish_count, price_per_dish,"+
			" adult_count, juvenile_count, child_count, adult_price, juvenile_price, child_price,"+
			" quarterly_adjustment_percent, last_adjustment_at, total_amount, created_at, updated_at, version"+
			" FROM events"+
			" WHERE id = $1",
		id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, ErrNoRows
		}
		return model.Event{}, err
	}

	var paymentRows []paymentRow
	err = tx.SelectContext(ctx, &paymentRows,
		"SELECT id, event_id, amount, currency, exchange_rate, exchange_rate_date, coverage_kind,"+
			" plates_covered, price_per_dish_at_payment,"+
			" adult_covered, juvenile_covered, child_covered,"+
			" adult_price_at_payment, juvenile_price_at_payment, child_price_at_payment, paid_at"+
			" FROM event_payments"+
			" WHERE event_id = $1"+
			" ORDER BY paid_at DESC",
		id)
	if err != nil {
		return model.Event{}, err
	}

	event := row.toModel()
	event.Payments = make([]model.Payment, 0, len(paymentRows))
	for _, paymentRow := range paymentRows {
		event.Payments = append(event.Payments, paymentRow.toModel())
	}

	return event, tx.Commit()
}

func (store *store) EventUpdatePricing(ctx context.Context, event model.Event) error {
	result, err := store.database.NamedExecContext(ctx,
		"UPDATE events"+
			" SET currency = :currency,"+
			"     pricing_scheme = :pricing_scheme,"+
			"     dish_count = :dish_count,"+
			"     price_per_dish = :price_per_dish,"+
			"     adult_count = :adult_count,"+
			"     juvenile_count = :juvenile_count,"+
			"     child_count = :child_count,"+
			"     adult_price = :adult_price,"+
			"     juvenile_price = :juvenile_price,"+
			"     child_price = :child_price,"+
			"     quarterly_adjustment_percent = :quarterly_adjustment_percent,"+
			"     total_amount = :total_amount,"+
			"     updated_at = :updated_at,"+
			"     version = version + 1"+
			" WHERE id = :id"+
			"   AND version = :version",
		newEventRow(event))
	if err != nil {
		return err
	}
	return store.expectVersioned(ctx, result, event.ID)
}

// EventApplyAdjustment сохраняет индексацию поверх прочитанной версии.
func (store *store) EventApplyAdjustment(ctx context.Context, event model.Event) error {
	row := newEventRow(event)
	result, err := store.database.ExecContext(ctx,
		"UPDATE events"+
			" SET price_per_dish = $1,"+
			"     adult_price = $2,"+
			"     juvenile_price = $3,"+
			"     child_price = $4,"+
			"     total_amount = $5,"+
			"     last_adjustment_at = $6,"+
			"     updated_at = $7,"+
			"     version = version + 1"+
			" WHERE id = $8"+
			"   AND version = $9",
		row.PricePerDish,
		row.AdultPrice,
		row.JuvenilePrice,
		row.ChildPrice,
		row.TotalAmount,
		row.LastAdjustmentAt,
		row.UpdatedAt,
		row.ID,
		row.Version)
	if err != nil {
		return err
	}
	return store.expectVersioned(ctx, result, event.ID)
}

// expectVersioned отличает отсутствующее мероприятие от записи поверх
// чужого изменения.
func (store *store) expectVersioned(ctx context.Context, result sql.Result, id uuid.UUID) error {
	err := expectOneRow(result, ErrConflict)
	if !errors.Is(err, ErrConflict) {
		return err
	}

	var exists bool
	err = store.database.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)",
		id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNoRows
	}
	return ErrConflict
}

func (store *store) PaymentCreate(ctx context.Context, payment model.Payment) error {
	_, err := store.database.NamedExecContext(ctx,
		"INSERT INTO event_payments (id, event_id, amount, currency, exchange_rate, exchange_rate_date,"+
			" coverage_kind, plates_covered, price_per_dish_at_payment,"+
			" adult_covered, juvenile_covered, child_covered,"+
			" adult_price_at_payment, juvenile_price_at_payment, child_price_at_payment, paid_at)"+
			" VALUES (:id, :event_id, :amount, :currency, :exchange_rate, :exchange_rate_date,"+
			" :coverage_kind, :plates_covered, :price_per_dish_at_payment,"+
			" :adult_covered, :juvenile_covered, :child_covered,"+
			" :adult_price_at_payment, :juvenile_price_at_payment, :child_price_at_payment, :paid_at)",
		newPaymentRow(payment))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgForeignKeyViolation:
				// мероприятия нет
				return ErrNoRows
			case pgUniqueViolation:
				return ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (store *store) PaymentDelete(ctx context.Context, eventID uuid.UUID, paymentID uuid.UUID) error {
	result, err := store.database.ExecContext(ctx,
		"DELETE FROM event_payments"+
			" WHERE id = $1"+
			"   AND event_id = $2",
		paymentID,
		eventID)
	if err != nil {
		return err
	}
	return expectOneRow(result, ErrNoRows)
}

func expectOneRow(result sql.Result, errNone error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errNone
	}
	return nil
}
