package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/crossvenue/prediction-arb/internal/matching"
	"github.com/crossvenue/prediction-arb/pkg/types"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresLedger implements TradeLedger, SettingsStore and AdvisoryLocker
// on PostgreSQL.
type PostgresLedger struct {
	db     *sql.DB
	logger *zap.Logger

	// Advisory locks are session scoped, so the lock must be taken and
	// released on the same connection. lockConn pins that connection for
	// the lifetime of the lock instead of letting the pool rotate it.
	lockMu   sync.Mutex
	lockConn *sql.Conn
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresLedger opens and pings a PostgreSQL connection.
func NewPostgresLedger(cfg *PostgresConfig) (*PostgresLedger, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-ledger-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresLedger{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// newPostgresLedgerWithDB wraps an existing connection; used by tests.
func newPostgresLedgerWithDB(db *sql.DB, logger *zap.Logger) *PostgresLedger {
	return &PostgresLedger{db: db, logger: logger}
}

// InsertLegPair inserts both legs in one transaction so a partial pair can
// never be observed.
func (p *PostgresLedger) InsertLegPair(ctx context.Context, legs [2]types.TradeLeg) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", types.ErrLedgerWrite, err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO trade_legs (
			id, market_id, question, question_norm, venue, side,
			price, size, status, profit_loss, order_ref, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	for _, leg := range legs {
		_, err = tx.ExecContext(ctx, query,
			leg.ID,
			leg.MarketID,
			leg.Question,
			matching.NormalizeText(leg.Question),
			string(leg.Venue),
			string(leg.Side),
			leg.Price,
			leg.Size,
			string(leg.Status),
			leg.ProfitLoss,
			leg.OrderRef,
			leg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("%w: insert leg %s: %v", types.ErrLedgerWrite, leg.ID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("%w: commit: %v", types.ErrLedgerWrite, err)
	}

	p.logger.Debug("leg-pair-inserted",
		zap.String("market-id", legs[0].MarketID),
		zap.String("yes-leg", legs[0].ID),
		zap.String("no-leg", legs[1].ID))

	return nil
}

// OpenPositionCount counts distinct markets with working legs.
func (p *PostgresLedger) OpenPositionCount(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(DISTINCT market_id)
		FROM trade_legs
		WHERE status IN ('executed', 'live')
	`

	var count int
	err := p.db.QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open positions: %w", err)
	}
	return count, nil
}

// HasLegsForMarket checks both the market id and the normalized question so
// the same real-world market is not traded twice under different ids.
func (p *PostgresLedger) HasLegsForMarket(ctx context.Context, marketID, normalizedQuestion string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM trade_legs
			WHERE market_id = $1 OR question_norm = $2
		)
	`

	var exists bool
	err := p.db.QueryRowContext(ctx, query, marketID, normalizedQuestion).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existing legs: %w", err)
	}
	return exists, nil
}

// RecentLegs returns the newest legs first.
func (p *PostgresLedger) RecentLegs(ctx context.Context, limit int) ([]types.TradeLeg, error) {
	query := `
		SELECT id, market_id, question, venue, side, price, size,
		       status, profit_loss, order_ref, created_at
		FROM trade_legs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent legs: %w", err)
	}
	defer rows.Close()

	var legs []types.TradeLeg
	for rows.Next() {
		var leg types.TradeLeg
		var venue, side, status string
		err = rows.Scan(
			&leg.ID, &leg.MarketID, &leg.Question, &venue, &side,
			&leg.Price, &leg.Size, &status, &leg.ProfitLoss,
			&leg.OrderRef, &leg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan leg: %w", err)
		}
		leg.Venue = types.Platform(venue)
		leg.Side = types.Side(side)
		leg.Status = types.LegStatus(status)
		legs = append(legs, leg)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate legs: %w", err)
	}
	return legs, nil
}

// Stats aggregates the full ledger. Trades are counted as leg pairs.
func (p *PostgresLedger) Stats(ctx context.Context) (types.TradeStats, error) {
	query := `
		SELECT COUNT(*) / 2,
		       COALESCE(SUM(profit_loss), 0),
		       COALESCE(SUM(price * size), 0)
		FROM trade_legs
	`

	var stats types.TradeStats
	err := p.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalTrades, &stats.TotalProfit, &stats.TotalInvested,
	)
	if err != nil {
		return types.TradeStats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return stats, nil
}

// Get returns the settings row, creating it with defaults on first use.
func (p *PostgresLedger) Get(ctx context.Context) (types.BotSettings, error) {
	query := `
		SELECT trade_amount, interval_minutes, min_confidence,
		       max_open_trades, is_running, updated_at
		FROM bot_settings
		LIMIT 1
	`

	var s types.BotSettings
	err := p.db.QueryRowContext(ctx, query).Scan(
		&s.TradeAmount, &s.IntervalMinutes, &s.MinConfidence,
		&s.MaxOpenTrades, &s.IsRunning, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return p.insertDefaultSettings(ctx)
	}
	if err != nil {
		return types.BotSettings{}, fmt.Errorf("query settings: %w", err)
	}
	return s, nil
}

func (p *PostgresLedger) insertDefaultSettings(ctx context.Context) (types.BotSettings, error) {
	s := types.DefaultBotSettings()

	query := `
		INSERT INTO bot_settings (
			trade_amount, interval_minutes, min_confidence,
			max_open_trades, is_running, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := p.db.ExecContext(ctx, query,
		s.TradeAmount, s.IntervalMinutes, s.MinConfidence,
		s.MaxOpenTrades, s.IsRunning, s.UpdatedAt,
	)
	if err != nil {
		return types.BotSettings{}, fmt.Errorf("insert default settings: %w", err)
	}
	return s, nil
}

// SetRunning flips the running flag and returns the updated settings.
func (p *PostgresLedger) SetRunning(ctx context.Context, running bool) (types.BotSettings, error) {
	// Ensure the row exists before updating it.
	_, err := p.Get(ctx)
	if err != nil {
		return types.BotSettings{}, err
	}

	query := `UPDATE bot_settings SET is_running = $1, updated_at = $2`
	_, err = p.db.ExecContext(ctx, query, running, time.Now().UTC())
	if err != nil {
		return types.BotSettings{}, fmt.Errorf("update running flag: %w", err)
	}

	p.logger.Info("bot-running-flag-updated", zap.Bool("running", running))
	return p.Get(ctx)
}

// Update applies the non-nil fields of the update and returns the result.
func (p *PostgresLedger) Update(ctx context.Context, upd SettingsUpdate) (types.BotSettings, error) {
	_, err := p.Get(ctx)
	if err != nil {
		return types.BotSettings{}, err
	}

	sets := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)
	arg := 1

	if upd.TradeAmount != nil {
		sets = append(sets, fmt.Sprintf("trade_amount = $%d", arg))
		args = append(args, *upd.TradeAmount)
		arg++
	}
	if upd.IntervalMinutes != nil {
		sets = append(sets, fmt.Sprintf("interval_minutes = $%d", arg))
		args = append(args, *upd.IntervalMinutes)
		arg++
	}
	if upd.MinConfidence != nil {
		sets = append(sets, fmt.Sprintf("min_confidence = $%d", arg))
		args = append(args, *upd.MinConfidence)
		arg++
	}
	if upd.MaxOpenTrades != nil {
		sets = append(sets, fmt.Sprintf("max_open_trades = $%d", arg))
		args = append(args, *upd.MaxOpenTrades)
		arg++
	}

	if len(sets) == 0 {
		return p.Get(ctx)
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", arg))
	args = append(args, time.Now().UTC())

	query := "UPDATE bot_settings SET " + strings.Join(sets, ", ")
	_, err = p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return types.BotSettings{}, fmt.Errorf("update settings: %w", err)
	}

	return p.Get(ctx)
}

// TryLock attempts a session-level advisory lock without blocking. The lock
// is held on a dedicated connection until Unlock releases it.
func (p *PostgresLedger) TryLock(ctx context.Context, key int64) (bool, error) {
	p.lockMu.Lock()
	defer p.lockMu.Unlock()

	if p.lockConn != nil {
		return false, nil
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("advisory lock: checkout connection: %w", err)
	}

	var acquired bool
	err = conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&acquired)
	if err != nil {
		conn.Close()
		return false, fmt.Errorf("advisory lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	p.lockConn = conn
	return true, nil
}

// Unlock releases the advisory lock on the pinned connection and returns it
// to the pool. A no-op when no lock is held.
func (p *PostgresLedger) Unlock(ctx context.Context, key int64) error {
	p.lockMu.Lock()
	defer p.lockMu.Unlock()

	if p.lockConn == nil {
		return nil
	}

	conn := p.lockConn
	p.lockConn = nil
	defer conn.Close()

	var released bool
	err := conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1)`, key).Scan(&released)
	if err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	if !released {
		return fmt.Errorf("advisory unlock: lock %d was not held by this session", key)
	}
	return nil
}

// Close closes the database connection.
func (p *PostgresLedger) Close() error {
	p.logger.Info("closing-postgres-ledger")

	p.lockMu.Lock()
	if p.lockConn != nil {
		p.lockConn.Close()
		p.lockConn = nil
	}
	p.lockMu.Unlock()

	return p.db.Close()
}
