package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crossvenue/prediction-arb/internal/matching"
	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

func testLegPair() [2]types.TradeLeg {
	now := time.Now().UTC()
	return [2]types.TradeLeg{
		{
			ID:        "leg-yes",
			MarketID:  "mkt-1",
			Question:  "Will the Chiefs win the Super Bowl?",
			Venue:     types.PlatformPolymarket,
			Side:      types.SideYes,
			Price:     0.40,
			Size:      12.5,
			Status:    types.LegExecuted,
			CreatedAt: now,
		},
		{
			ID:        "leg-no",
			MarketID:  "mkt-1",
			Question:  "Will the Chiefs win the Super Bowl?",
			Venue:     types.PlatformKalshi,
			Side:      types.SideNo,
			Price:     0.55,
			Size:      12.5,
			Status:    types.LegLive,
			OrderRef:  "k-order-1",
			CreatedAt: now,
		},
	}
}

func TestPostgresLedger_InsertLegPair(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	ledger := newPostgresLedgerWithDB(db, logger)
	legs := testLegPair()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO trade_legs").
		WithArgs(
			legs[0].ID, legs[0].MarketID, legs[0].Question,
			"will the chiefs win the super bowl",
			string(legs[0].Venue), string(legs[0].Side),
			legs[0].Price, legs[0].Size, string(legs[0].Status),
			legs[0].ProfitLoss, legs[0].OrderRef, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO trade_legs").
		WithArgs(
			legs[1].ID, legs[1].MarketID, legs[1].Question,
			"will the chiefs win the super bowl",
			string(legs[1].Venue), string(legs[1].Side),
			legs[1].Price, legs[1].Size, string(legs[1].Status),
			legs[1].ProfitLoss, legs[1].OrderRef, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = ledger.InsertLegPair(context.Background(), legs)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresLedger_InsertLegPair_RollsBackOnError(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	ledger := newPostgresLedgerWithDB(db, logger)
	legs := testLegPair()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO trade_legs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO trade_legs").
		WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	err = ledger.InsertLegPair(context.Background(), legs)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, types.ErrLedgerWrite) {
		t.Errorf("expected ErrLedgerWrite, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresLedger_OpenPositionCount(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	ledger := newPostgresLedgerWithDB(db, logger)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := ledger.OpenPositionCount(context.Background())
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 open positions, got %d", count)
	}
}

func TestPostgresLedger_TryLock(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	ledger := newPostgresLedgerWithDB(db, logger)

	mock.ExpectQuery("pg_try_advisory_lock").
		WithArgs(AutoTradeLockKey).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	acquired, err := ledger.TryLock(context.Background(), AutoTradeLockKey)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if acquired {
		t.Error("expected lock to be held elsewhere")
	}
}

func TestPostgresLedger_LockLifecycle(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	ledger := newPostgresLedgerWithDB(db, logger)
	ctx := context.Background()

	mock.ExpectQuery("pg_try_advisory_lock").
		WithArgs(AutoTradeLockKey).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))

	acquired, err := ledger.TryLock(ctx, AutoTradeLockKey)
	if err != nil || !acquired {
		t.Fatalf("expected lock acquired, got %v %v", acquired, err)
	}

	// A second attempt while held must fail locally, without going back to
	// the database on a different pooled connection.
	acquired, err = ledger.TryLock(ctx, AutoTradeLockKey)
	if err != nil {
		t.Fatalf("second try lock: %v", err)
	}
	if acquired {
		t.Error("expected second lock attempt to fail while held")
	}

	// The unlock must run on the connection that took the lock.
	mock.ExpectQuery("pg_advisory_unlock").
		WithArgs(AutoTradeLockKey).
		WillReturnRows(sqlmock.NewRows([]string{"pg_advisory_unlock"}).AddRow(true))

	err = ledger.Unlock(ctx, AutoTradeLockKey)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresLedger_UnlockSurfacesLostLock(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	ledger := newPostgresLedgerWithDB(db, logger)
	ctx := context.Background()

	mock.ExpectQuery("pg_try_advisory_lock").
		WithArgs(AutoTradeLockKey).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectQuery("pg_advisory_unlock").
		WithArgs(AutoTradeLockKey).
		WillReturnRows(sqlmock.NewRows([]string{"pg_advisory_unlock"}).AddRow(false))

	acquired, err := ledger.TryLock(ctx, AutoTradeLockKey)
	if err != nil || !acquired {
		t.Fatalf("expected lock acquired, got %v %v", acquired, err)
	}

	err = ledger.Unlock(ctx, AutoTradeLockKey)
	if err == nil {
		t.Fatal("expected error when the session no longer holds the lock")
	}
}

func TestMemoryLedger_PairInvariantQueries(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	err := ledger.InsertLegPair(ctx, testLegPair())
	if err != nil {
		t.Fatalf("insert pair: %v", err)
	}

	count, err := ledger.OpenPositionCount(ctx)
	if err != nil {
		t.Fatalf("open position count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 open position, got %d", count)
	}

	// Dedup by market id.
	exists, err := ledger.HasLegsForMarket(ctx, "mkt-1", "something else entirely")
	if err != nil {
		t.Fatalf("has legs: %v", err)
	}
	if !exists {
		t.Error("expected legs to exist by market id")
	}

	// Dedup by normalized question under a different id.
	exists, err = ledger.HasLegsForMarket(ctx, "mkt-other", "will the chiefs win the super bowl")
	if err != nil {
		t.Fatalf("has legs: %v", err)
	}
	if !exists {
		t.Error("expected legs to exist by normalized question")
	}

	exists, err = ledger.HasLegsForMarket(ctx, "mkt-other", "completely unrelated question")
	if err != nil {
		t.Fatalf("has legs: %v", err)
	}
	if exists {
		t.Error("expected no legs for unrelated market")
	}
}

func TestMemoryLedger_DedupMatchesNonASCIIQuestions(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	question := "Will Erdoğan win the 2028 Türkiye election?"
	legs := testLegPair()
	legs[0].MarketID = "legacy-id"
	legs[0].Question = question
	legs[1].MarketID = "legacy-id"
	legs[1].Question = question

	err := ledger.InsertLegPair(ctx, legs)
	if err != nil {
		t.Fatalf("insert pair: %v", err)
	}

	// The same market can resurface under a different id; the normalized
	// question must still match, accented letters included.
	exists, err := ledger.HasLegsForMarket(ctx, "new-id", matching.NormalizeText(question))
	if err != nil {
		t.Fatalf("has legs: %v", err)
	}
	if !exists {
		t.Error("expected dedup hit on normalized non-ascii question")
	}
}

func TestMemoryLedger_StatsAndSettings(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	err := ledger.InsertLegPair(ctx, testLegPair())
	if err != nil {
		t.Fatalf("insert pair: %v", err)
	}

	stats, err := ledger.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalTrades != 1 {
		t.Errorf("expected 1 trade, got %d", stats.TotalTrades)
	}
	wantInvested := 0.40*12.5 + 0.55*12.5
	if stats.TotalInvested != wantInvested {
		t.Errorf("expected invested %.4f, got %.4f", wantInvested, stats.TotalInvested)
	}

	amount := 25.0
	slots := 2
	settings, err := ledger.Update(ctx, SettingsUpdate{TradeAmount: &amount, MaxOpenTrades: &slots})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if settings.TradeAmount != 25.0 || settings.MaxOpenTrades != 2 {
		t.Errorf("unexpected settings after update: %+v", settings)
	}
	// Untouched fields keep defaults.
	if settings.IntervalMinutes != 60 {
		t.Errorf("expected interval untouched at 60, got %d", settings.IntervalMinutes)
	}

	settings, err = ledger.SetRunning(ctx, true)
	if err != nil {
		t.Fatalf("set running: %v", err)
	}
	if !settings.IsRunning {
		t.Error("expected running flag set")
	}
}

func TestMemoryLedger_AdvisoryLock(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	acquired, err := ledger.TryLock(ctx, AutoTradeLockKey)
	if err != nil || !acquired {
		t.Fatalf("expected first lock to succeed, got %v %v", acquired, err)
	}

	acquired, err = ledger.TryLock(ctx, AutoTradeLockKey)
	if err != nil {
		t.Fatalf("try lock: %v", err)
	}
	if acquired {
		t.Error("expected second lock attempt to fail while held")
	}

	err = ledger.Unlock(ctx, AutoTradeLockKey)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}

	acquired, err = ledger.TryLock(ctx, AutoTradeLockKey)
	if err != nil || !acquired {
		t.Fatalf("expected lock after unlock, got %v %v", acquired, err)
	}
}

func TestPostgresLedger_InsertLegPair_NormalizesNonASCIIQuestions(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	ledger := newPostgresLedgerWithDB(db, logger)

	question := "Will Erdoğan win the 2028 Türkiye election?"
	legs := testLegPair()
	legs[0].Question = question
	legs[1].Question = question

	// The stored question_norm must come from the same normalizer the
	// orchestrator uses for its dedup lookups.
	want := matching.NormalizeText(question)

	mock.ExpectBegin()
	for _, leg := range legs {
		mock.ExpectExec("INSERT INTO trade_legs").
			WithArgs(
				leg.ID, leg.MarketID, leg.Question,
				want,
				string(leg.Venue), string(leg.Side),
				leg.Price, leg.Size, string(leg.Status),
				leg.ProfitLoss, leg.OrderRef, sqlmock.AnyArg(),
			).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	err = ledger.InsertLegPair(context.Background(), legs)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
