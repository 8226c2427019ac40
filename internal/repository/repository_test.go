// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = applySchema(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// applySchema creates the tables used by the repositories.
func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			telegram_id BIGINT PRIMARY KEY,
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			username VARCHAR(255) NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS orders (
			order_id VARCHAR(64) PRIMARY KEY,
			account_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			game_id VARCHAR(16) NOT NULL,
			server_id VARCHAR(16) NOT NULL,
			item_code VARCHAR(32) NOT NULL,
			price BIGINT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_by BIGINT,
			resolved_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS topups (
			topup_id VARCHAR(64) PRIMARY KEY,
			account_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			channel VARCHAR(32) NOT NULL,
			proof_file_id TEXT,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_by BIGINT,
			resolved_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS admins (
			user_id BIGINT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS authorized_users (
			user_id BIGINT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS price_overrides (
			item_code VARCHAR(32) PRIMARY KEY,
			price BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS payment_channels (
			name VARCHAR(32) PRIMARY KEY,
			account_number VARCHAR(64) NOT NULL,
			account_name VARCHAR(255) NOT NULL,
			qr_file_id TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS clones (
			id BIGINT PRIMARY KEY,
			owner_admin_id BIGINT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(16) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

// ============================================================================
// AccountRepository Tests
// ============================================================================

func TestAccountRepository_CreateIfAbsent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAccountRepository(pool)
	ctx := context.Background()

	// First interaction creates the row
	created, err := repo.CreateIfAbsent(ctx, 12345, "Alice", "alice")
	require.NoError(t, err)
	assert.True(t, created)

	account, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), account.TelegramID)
	assert.Equal(t, "Alice", account.DisplayName)
	assert.Equal(t, int64(0), account.Balance) // Balance starts at zero
	assert.False(t, account.CreatedAt.IsZero())

	// Second call is a no-op and never resets the balance
	_, err = repo.AdjustBalance(ctx, 12345, 5000)
	require.NoError(t, err)

	created, err = repo.CreateIfAbsent(ctx, 12345, "Alice", "alice")
	require.NoError(t, err)
	assert.False(t, created)

	account, err = repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), account.Balance)
}

func TestAccountRepository_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAccountRepository(pool)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountRepository_AdjustBalance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAccountRepository(pool)
	ctx := context.Background()

	_, err := repo.CreateIfAbsent(ctx, 12345, "Alice", "alice")
	require.NoError(t, err)

	// Credit
	balance, err := repo.AdjustBalance(ctx, 12345, 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), balance)

	// Debit
	balance, err = repo.AdjustBalance(ctx, 12345, -5100)
	require.NoError(t, err)
	assert.Equal(t, int64(4900), balance)

	// Adjusting an absent account upserts it with the delta
	balance, err = repo.AdjustBalance(ctx, 777, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)
}

func TestAccountRepository_AdjustBalance_Concurrent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAccountRepository(pool)
	ctx := context.Background()

	_, err := repo.CreateIfAbsent(ctx, 12345, "Alice", "alice")
	require.NoError(t, err)

	// 50 concurrent increments of 100 must all land: the increment
	// happens inside the database, so no update can be lost.
	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := repo.AdjustBalance(ctx, 12345, 100)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	account, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*100), account.Balance)
}

func TestAccountRepository_UpdateProfile(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAccountRepository(pool)
	ctx := context.Background()

	_, err := repo.CreateIfAbsent(ctx, 12345, "Alice", "alice")
	require.NoError(t, err)

	// Missing fields keep their stored value
	err = repo.UpdateProfile(ctx, 12345, "Alice B", "")
	require.NoError(t, err)

	account, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", account.DisplayName)
	assert.Equal(t, "alice", account.Username)

	err = repo.UpdateProfile(ctx, 99999, "Nobody", "nobody")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountRepository_Summary(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	accounts := NewAccountRepository(pool)
	orders := NewOrderRepository(pool)
	topups := NewTopupRepository(pool)
	ctx := context.Background()

	_, err := accounts.CreateIfAbsent(ctx, 12345, "Alice", "alice")
	require.NoError(t, err)
	_, err = accounts.AdjustBalance(ctx, 12345, 9000)
	require.NoError(t, err)

	require.NoError(t, orders.Append(ctx, testOrder("O1", 12345, 5100)))
	require.NoError(t, topups.Append(ctx, testTopup("T1", 12345, 50000)))
	require.NoError(t, topups.Append(ctx, testTopup("T2", 12345, 20000)))

	_, err = topups.Transition(ctx, "T2", model.TopupRejected, 1, time.Now())
	require.NoError(t, err)

	summary, err := accounts.Summary(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), summary.Balance)
	assert.Equal(t, int64(1), summary.OrderCount)
	assert.Equal(t, int64(2), summary.TopupCount)
	assert.Equal(t, int64(1), summary.PendingTopupCount)

	_, err = accounts.Summary(ctx, 99999)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

// ============================================================================
// OrderRepository Tests
// ============================================================================

func testOrder(id string, accountID, price int64) *model.Order {
	return &model.Order{
		OrderID:   id,
		AccountID: accountID,
		GameID:    "123456789",
		ServerID:  "12345",
		ItemCode:  "86",
		Price:     price,
		Status:    model.OrderPending,
		CreatedAt: time.Now(),
	}
}

func testTopup(id string, accountID, amount int64) *model.Topup {
	return &model.Topup{
		TopupID:   id,
		AccountID: accountID,
		Amount:    amount,
		Channel:   "kpay",
		Status:    model.TopupPending,
		CreatedAt: time.Now(),
	}
}

func TestOrderRepository_AppendAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	accounts := NewAccountRepository(pool)
	repo := NewOrderRepository(pool)
	ctx := context.Background()

	_, err := accounts.CreateIfAbsent(ctx, 12345, "Alice", "alice")
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, testOrder("O1", 12345, 5100)))

	order, err := repo.GetByID(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, order.Status)
	assert.Equal(t, int64(5100), order.Price)
	assert.Nil(t, order.ResolvedBy)
	assert.Nil(t, order.ResolvedAt)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderRepository_Transition(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	accounts := NewAccountRepository(pool)
	repo := NewOrderRepository(pool)
	ctx := context.Background()

	_, err := accounts.CreateIfAbsent(ctx, 12345, "Alice", "alice")
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, testOrder("O1", 12345, 5100)))

	order, err := repo.Transition(ctx, "O1", model.OrderConfirmed, 999, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, order.Status)
	require.NotNil(t, order.ResolvedBy)
	assert.Equal(t, int64(999), *order.ResolvedBy)
	assert.NotNil(t, order.ResolvedAt)

	// A second resolution is a no-op: the caller gets the terminal
	// snapshot together with ErrAlreadyResolved.
	order, err = repo.Transition(ctx, "O1", model.OrderCancelled, 888, time.Now())
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	require.NotNil(t, order)
	assert.Equal(t, model.OrderConfirmed, order.Status)
	assert.Equal(t, int64(999), *order.ResolvedBy)

	_, err = repo.Transition(ctx, "missing", model.OrderConfirmed, 999, time.Now())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderRepository_Transition_Race(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	accounts := NewAccountRepository(pool)
	repo := NewOrderRepository(pool)
	ctx := context.Background()

	_, err := accounts.CreateIfAbsent(ctx, 12345, "Alice", "alice")
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, testOrder("O1", 12345, 5100)))

	// Two admins resolve the same order concurrently; exactly one wins.
	statuses := []model.OrderStatus{model.OrderConfirmed, model.OrderCancelled}
	results := make([]error, len(statuses))
	var wg sync.WaitGroup
	wg.Add(len(statuses))
	for i, to := range statuses {
		go func(i int, to model.OrderStatus) {
			defer wg.Done()
			_, results[i] = repo.Transition(ctx, "O1", to, int64(i+1), time.Now())
		}(i, to)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyResolved)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestOrderRepository_RevertToPending(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	accounts := NewAccountRepository(pool)
	repo := NewOrderRepository(pool)
	ctx := context.Background()

	_, err := accounts.CreateIfAbsent(ctx, 12345, "Alice", "alice")
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, testOrder("O1", 12345, 5100)))

	_, err = repo.Transition(ctx, "O1", model.OrderCancelled, 999, time.Now())
	require.NoError(t, err)

	require.NoError(t, repo.RevertToPending(ctx, "O1", model.OrderCancelled))

	order, err := repo.GetByID(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, order.Status)
	assert.Nil(t, order.ResolvedBy)
	assert.Nil(t, order.ResolvedAt)

	// Reverting from the wrong status does nothing
	err = repo.RevertToPending(ctx, "O1", model.OrderConfirmed)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderRepository_Aggregate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	accounts := NewAccountRepository(pool)
	repo := NewOrderRepository(pool)
	ctx := context.Background()

	_, err := accounts.CreateIfAbsent(ctx, 12345, "Alice", "alice")
	require.NoError(t, err)

	for _, id := range []string{"O1", "O2", "O3"} {
		require.NoError(t, repo.Append(ctx, testOrder(id, 12345, 5100)))
	}

	inside := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) // boundary, excluded

	_, err = repo.Transition(ctx, "O1", model.OrderConfirmed, 1, inside)
	require.NoError(t, err)
	_, err = repo.Transition(ctx, "O2", model.OrderConfirmed, 1, outside)
	require.NoError(t, err)
	// O3 cancelled inside the window: cancelled orders never count
	_, err = repo.Transition(ctx, "O3", model.OrderCancelled, 1, inside)
	require.NoError(t, err)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	total, count, err := repo.Aggregate(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(5100), total)
	assert.Equal(t, int64(1), count)
}

// ============================================================================
// TopupRepository Tests
// ============================================================================

func TestTopupRepository_LatestPendingByAmount(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	accounts := NewAccountRepository(pool)
	repo := NewTopupRepository(pool)
	ctx := context.Background()

	_, err := accounts.CreateIfAbsent(ctx, 12345, "Alice", "alice")
	require.NoError(t, err)

	older := testTopup("T1", 12345, 50000)
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := testTopup("T2", 12345, 50000)
	require.NoError(t, repo.Append(ctx, older))
	require.NoError(t, repo.Append(ctx, newer))

	// Two pending top-ups share the amount: the newest one wins
	topup, err := repo.LatestPendingByAmount(ctx, 12345, 50000)
	require.NoError(t, err)
	assert.Equal(t, "T2", topup.TopupID)

	_, err = repo.LatestPendingByAmount(ctx, 12345, 123)
	assert.ErrorIs(t, err, ErrTopupNotFound)

	// Resolved top-ups no longer match
	_, err = repo.Transition(ctx, "T2", model.TopupApproved, 1, time.Now())
	require.NoError(t, err)
	topup, err = repo.LatestPendingByAmount(ctx, 12345, 50000)
	require.NoError(t, err)
	assert.Equal(t, "T1", topup.TopupID)
}

func TestTopupRepository_HasPending(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	accounts := NewAccountRepository(pool)
	repo := NewTopupRepository(pool)
	ctx := context.Background()

	_, err := accounts.CreateIfAbsent(ctx, 12345, "Alice", "alice")
	require.NoError(t, err)

	pending, err := repo.HasPending(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, pending)

	require.NoError(t, repo.Append(ctx, testTopup("T1", 12345, 50000)))

	pending, err = repo.HasPending(ctx, 12345)
	require.NoError(t, err)
	assert.True(t, pending)

	ids, err := repo.AccountIDsWithPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{12345}, ids)

	_, err = repo.Transition(ctx, "T1", model.TopupRejected, 1, time.Now())
	require.NoError(t, err)

	pending, err = repo.HasPending(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, pending)
}

// ============================================================================
// SettingsRepository Tests
// ============================================================================

func TestSettingsRepository_Admins(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepository(pool)
	ctx := context.Background()

	// Adding twice is idempotent
	require.NoError(t, repo.AddAdmin(ctx, 100))
	require.NoError(t, repo.AddAdmin(ctx, 100))
	require.NoError(t, repo.AddAdmin(ctx, 200))

	admins, err := repo.ListAdmins(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{100, 200}, admins)

	// Removing an absent id is a no-op
	require.NoError(t, repo.RemoveAdmin(ctx, 100))
	require.NoError(t, repo.RemoveAdmin(ctx, 100))

	admins, err = repo.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{200}, admins)
}

func TestSettingsRepository_AuthorizedUsers(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.AuthorizeUser(ctx, 100))
	require.NoError(t, repo.AuthorizeUser(ctx, 100))

	users, err := repo.ListAuthorized(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, users)

	require.NoError(t, repo.RevokeUser(ctx, 100))

	users, err = repo.ListAuthorized(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSettingsRepository_PriceOverride(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepository(pool)
	ctx := context.Background()

	_, found, err := repo.PriceOverride(ctx, "86")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.SetPriceOverride(ctx, "86", 4500))

	price, found, err := repo.PriceOverride(ctx, "86")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(4500), price)

	// Setting again replaces the price
	require.NoError(t, repo.SetPriceOverride(ctx, "86", 4800))
	price, _, err = repo.PriceOverride(ctx, "86")
	require.NoError(t, err)
	assert.Equal(t, int64(4800), price)

	require.NoError(t, repo.RemovePriceOverride(ctx, "86"))
	_, found, err = repo.PriceOverride(ctx, "86")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSettingsRepository_PaymentChannels(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.SetPaymentChannel(ctx, &model.PaymentChannel{
		Name:          "kpay",
		AccountNumber: "09777000111",
		AccountName:   "U Kyaw",
	}))

	ch, found, err := repo.PaymentChannel(ctx, "kpay")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "09777000111", ch.AccountNumber)

	channels, err := repo.ListPaymentChannels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 1)

	require.NoError(t, repo.RemovePaymentChannel(ctx, "kpay"))
	_, found, err = repo.PaymentChannel(ctx, "kpay")
	require.NoError(t, err)
	assert.False(t, found)
}

// ============================================================================
// CloneRepository Tests
// ============================================================================

func TestCloneRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCloneRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, 555, 100)
	require.NoError(t, err)
	assert.True(t, created)

	// Registering again is idempotent
	created, err = repo.Create(ctx, 555, 100)
	require.NoError(t, err)
	assert.False(t, created)

	balance, err := repo.AdjustBalance(ctx, 555, 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), balance)

	balance, err = repo.AdjustBalance(ctx, 555, -1000)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), balance)

	_, err = repo.AdjustBalance(ctx, 999, 100)
	assert.ErrorIs(t, err, ErrCloneNotFound)

	require.NoError(t, repo.SetStatus(ctx, 555, model.CloneDisabled))

	clones, err := repo.ListByOwner(ctx, 100)
	require.NoError(t, err)
	require.Len(t, clones, 1)
	assert.Equal(t, model.CloneDisabled, clones[0].Status)
}

func TestStoreErrorClassification(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	accounts := NewAccountRepository(pool)
	orders := NewOrderRepository(pool)

	// A statement the server received and rejected keeps its own
	// identity; it must not look like a retry-safe outage.
	_, err := pool.Exec(ctx, `DROP TABLE orders`)
	require.NoError(t, err)
	err = orders.Append(ctx, testOrder("D1", 1, 1000))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)

	// A connection-class failure surfaces as ErrStoreUnavailable so
	// callers know the write may never have reached the database.
	pool.Close()
	_, err = accounts.GetByID(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
