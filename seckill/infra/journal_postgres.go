package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flashsale-gateway/seckill/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresJournal implementa domain.Journal com pgx.
//
// A unicidade por (comprador, item) é a PRIMARY KEY da tabela: TryCreate vira
// um INSERT ... ON CONFLICT DO NOTHING, atômico por construção no banco.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

func NewPostgresJournal(connString string) (*PostgresJournal, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("journal: parse conn string: %w", err)
	}
	cfg.MaxConns = 25
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("journal: create pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal: ping database: %w", err)
	}

	return &PostgresJournal{pool: pool}, nil
}

func (j *PostgresJournal) Close() {
	j.pool.Close()
}

// Migrate cria a tabela do diário se ainda não existir.
func (j *PostgresJournal) Migrate(ctx context.Context) error {
	_, err := j.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS seckill_orders (
			buyer_id   TEXT NOT NULL,
			item_id    TEXT NOT NULL,
			order_id   BIGINT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			PRIMARY KEY (buyer_id, item_id)
		)`)
	if err != nil {
		return fmt.Errorf("journal: migrate: %w", err)
	}
	return nil
}

func (j *PostgresJournal) TryCreate(ctx context.Context, order domain.Order) (bool, error) {
	tag, err := j.pool.Exec(ctx, `
		INSERT INTO seckill_orders (buyer_id, item_id, order_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (buyer_id, item_id) DO NOTHING`,
		string(order.BuyerID), string(order.ItemID), order.OrderID, order.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("journal: insert order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (j *PostgresJournal) Find(ctx context.Context, buyer domain.BuyerID, item domain.ItemID) (*domain.Order, error) {
	o := domain.Order{BuyerID: buyer, ItemID: item}
	err := j.pool.QueryRow(ctx, `
		SELECT order_id, created_at FROM seckill_orders
		WHERE buyer_id = $1 AND item_id = $2`,
		string(buyer), string(item)).Scan(&o.OrderID, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: find order: %w", err)
	}
	return &o, nil
}
