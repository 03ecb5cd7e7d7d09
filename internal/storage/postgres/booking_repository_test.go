package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rrojan/ticket-booking/internal/app"
	"github.com/rrojan/ticket-booking/internal/clock"
	"github.com/rrojan/ticket-booking/internal/domain"
	"github.com/rrojan/ticket-booking/internal/testutil"
)

func TestBookingRepository_GetTierForUpdate(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	price := decimal.RequireFromString("25.00")
	_, tierID := testutil.InsertConcertAndTier(t, ctx, pool, "Lock Test", price, 10, 8)
	repo := NewBookingRepository(pool)

	t.Run("found", func(t *testing.T) {
		tier, err := repo.GetTierForUpdate(ctx, tierID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tier.ID != tierID {
			t.Fatalf("expected tier %s, got %s", tierID, tier.ID)
		}
		if !tier.Price.Equal(price) {
			t.Fatalf("expected price %s, got %s", price, tier.Price)
		}
		if tier.AvailableQuantity != 8 || tier.TotalQuantity != 10 {
			t.Fatalf("unexpected quantities %+v", tier)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetTierForUpdate(ctx, "00000000-0000-0000-0000-000000000000")
		if !errors.Is(err, domain.ErrTierNotFound) {
			t.Fatalf("expected ErrTierNotFound, got %v", err)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := repo.GetTierForUpdate(ctx, "not-a-uuid")
		if !errors.Is(err, domain.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})
}

func TestBookingRepository_CreateBooking(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	price := decimal.RequireFromString("25.00")
	_, tierID := testutil.InsertConcertAndTier(t, ctx, pool, "Insert Test", price, 10, 10)
	repo := NewBookingRepository(pool)

	now := time.Now().UTC()
	booking := domain.Booking{
		ID:             "0b0e76f5-7a72-4fd1-8d96-7f0a9a3a1c11",
		UserID:         "user-1",
		TierID:         tierID,
		Quantity:       2,
		UnitPrice:      price,
		TotalPrice:     price.Mul(decimal.NewFromInt(2)),
		Status:         domain.BookingStatusPending,
		PaymentStatus:  domain.PaymentStatusPending,
		IdempotencyKey: "create-1",
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := repo.CreateBooking(ctx, booking); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	t.Run("duplicate idempotency key", func(t *testing.T) {
		dup := booking
		dup.ID = "1c1e76f5-7a72-4fd1-8d96-7f0a9a3a1c22"
		if err := repo.CreateBooking(ctx, dup); !errors.Is(err, domain.ErrConcurrentConflict) {
			t.Fatalf("expected ErrConcurrentConflict, got %v", err)
		}
	})

	t.Run("unknown tier", func(t *testing.T) {
		orphan := booking
		orphan.ID = "2d2e76f5-7a72-4fd1-8d96-7f0a9a3a1c33"
		orphan.TierID = "00000000-0000-0000-0000-000000000000"
		orphan.IdempotencyKey = "create-2"
		if err := repo.CreateBooking(ctx, orphan); !errors.Is(err, domain.ErrTierNotFound) {
			t.Fatalf("expected ErrTierNotFound, got %v", err)
		}
	})

	t.Run("find by idempotency key", func(t *testing.T) {
		found, err := repo.FindBookingByIdempotencyKey(ctx, "create-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if found == nil || found.ID != booking.ID {
			t.Fatalf("expected booking %s, got %+v", booking.ID, found)
		}
		if !found.TotalPrice.Equal(booking.TotalPrice) {
			t.Fatalf("expected total %s, got %s", booking.TotalPrice, found.TotalPrice)
		}
	})

	t.Run("find miss returns nil", func(t *testing.T) {
		found, err := repo.FindBookingByIdempotencyKey(ctx, "no-such-key")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if found != nil {
			t.Fatalf("expected nil, got %+v", found)
		}
	})
}

func TestBookingRepository_SetTierAvailability(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	price := decimal.RequireFromString("10.00")
	_, tierID := testutil.InsertConcertAndTier(t, ctx, pool, "Availability Test", price, 10, 10)
	repo := NewBookingRepository(pool)

	t.Run("writes the value", func(t *testing.T) {
		if err := repo.SetTierAvailability(ctx, tierID, 4); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := testutil.TierAvailable(t, ctx, pool, tierID); got != 4 {
			t.Fatalf("expected 4, got %d", got)
		}
	})

	t.Run("rejects negative", func(t *testing.T) {
		if err := repo.SetTierAvailability(ctx, tierID, -1); !errors.Is(err, domain.ErrInventoryInvariant) {
			t.Fatalf("expected ErrInventoryInvariant, got %v", err)
		}
	})

	t.Run("rejects above total", func(t *testing.T) {
		if err := repo.SetTierAvailability(ctx, tierID, 11); !errors.Is(err, domain.ErrInventoryInvariant) {
			t.Fatalf("expected ErrInventoryInvariant, got %v", err)
		}
	})

	t.Run("unknown tier", func(t *testing.T) {
		err := repo.SetTierAvailability(ctx, "00000000-0000-0000-0000-000000000000", 1)
		if !errors.Is(err, domain.ErrTierNotFound) {
			t.Fatalf("expected ErrTierNotFound, got %v", err)
		}
	})
}

func TestBookingRepository_FinalizeBooking(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	price := decimal.RequireFromString("10.00")
	_, tierID := testutil.InsertConcertAndTier(t, ctx, pool, "Finalize Test", price, 10, 10)
	repo := NewBookingRepository(pool)

	bookingID := testutil.InsertBooking(t, ctx, pool, domain.Booking{
		UserID:         "user-1",
		TierID:         tierID,
		Quantity:       1,
		UnitPrice:      price,
		TotalPrice:     price,
		Status:         domain.BookingStatusPending,
		PaymentStatus:  domain.PaymentStatusPending,
		IdempotencyKey: "finalize-1",
	})

	now := time.Now().UTC()
	if err := repo.FinalizeBooking(ctx, bookingID, domain.BookingStatusConfirmed, domain.PaymentStatusSuccess, now); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := repo.getBooking(ctx, bookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if got.Status != domain.BookingStatusConfirmed || got.PaymentStatus != domain.PaymentStatusSuccess {
		t.Fatalf("expected CONFIRMED/SUCCESS, got %s/%s", got.Status, got.PaymentStatus)
	}

	t.Run("terminal bookings are not rewritten", func(t *testing.T) {
		err := repo.FinalizeBooking(ctx, bookingID, domain.BookingStatusFailed, domain.PaymentStatusFailed, now)
		if !errors.Is(err, domain.ErrBookingFinalized) {
			t.Fatalf("expected ErrBookingFinalized, got %v", err)
		}
	})
}

func TestBookingRepository_ListByUser(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	price := decimal.RequireFromString("50.00")
	_, tierID := testutil.InsertConcertAndTier(t, ctx, pool, "History Test", price, 10, 10)
	repo := NewBookingRepository(pool)

	for _, key := range []string{"hist-1", "hist-2"} {
		testutil.InsertBooking(t, ctx, pool, domain.Booking{
			UserID:         "user-1",
			TierID:         tierID,
			Quantity:       1,
			UnitPrice:      price,
			TotalPrice:     price,
			Status:         domain.BookingStatusConfirmed,
			PaymentStatus:  domain.PaymentStatusSuccess,
			IdempotencyKey: key,
		})
	}
	testutil.InsertBooking(t, ctx, pool, domain.Booking{
		UserID:         "user-2",
		TierID:         tierID,
		Quantity:       1,
		UnitPrice:      price,
		TotalPrice:     price,
		Status:         domain.BookingStatusFailed,
		PaymentStatus:  domain.PaymentStatusFailed,
		IdempotencyKey: "hist-3",
	})

	details, err := repo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(details))
	}
	for _, d := range details {
		if d.ConcertName != "History Test" {
			t.Fatalf("expected concert join, got %+v", d)
		}
		if d.TierType != domain.TierTypeGA {
			t.Fatalf("expected GA tier, got %s", d.TierType)
		}
	}

	empty, err := repo.ListByUser(ctx, "user-none")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no bookings, got %d", len(empty))
	}
}

func TestBookingRepository_WithTxRollsBackOnError(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	price := decimal.RequireFromString("10.00")
	_, tierID := testutil.InsertConcertAndTier(t, ctx, pool, "Rollback Test", price, 10, 10)
	repo := NewBookingRepository(pool)

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := repo.SetTierAvailability(txCtx, tierID, 3); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := testutil.TierAvailable(t, ctx, pool, tierID); got != 10 {
		t.Fatalf("expected availability restored to 10, got %d", got)
	}
}

// Competing attempts against one tier must never oversell: with k units left
// and n > k buyers, exactly k succeed and the rest see insufficient
// inventory.
func TestBookingService_NoOversellUnderConcurrency(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	const (
		units  = 5
		buyers = 16
	)
	price := decimal.RequireFromString("10.00")
	_, tierID := testutil.InsertConcertAndTier(t, ctx, pool, "Oversell Test", price, units, units)

	repo := NewBookingRepository(pool)
	svc := app.NewBookingService(repo, alwaysApprove{}, clock.NewSystem())

	var wg sync.WaitGroup
	results := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AttemptBooking(ctx, app.AttemptBookingInput{
				UserID:         "user-1",
				TierID:         tierID,
				Quantity:       1,
				IdempotencyKey: fmt.Sprintf("oversell-%d", i),
			})
			results[i] = err
		}(i)
	}
	wg.Wait()

	confirmed, insufficient := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			confirmed++
		case errors.Is(err, domain.ErrInsufficientInventory):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if confirmed != units {
		t.Fatalf("expected %d confirmed attempts, got %d", units, confirmed)
	}
	if insufficient != buyers-units {
		t.Fatalf("expected %d insufficient attempts, got %d", buyers-units, insufficient)
	}
	if got := testutil.TierAvailable(t, ctx, pool, tierID); got != 0 {
		t.Fatalf("expected availability 0, got %d", got)
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE status = 'CONFIRMED'`).Scan(&count); err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	if count != units {
		t.Fatalf("expected %d confirmed bookings, got %d", units, count)
	}
}

// Attempts racing on one idempotency key must converge on a single booking:
// one insert wins, every other attempt gets that same booking back (or a
// conflict), and inventory is consumed exactly once.
func TestBookingService_ConcurrentAttemptsShareOneKey(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	const attempts = 8
	price := decimal.RequireFromString("10.00")
	_, tierID := testutil.InsertConcertAndTier(t, ctx, pool, "Shared Key Test", price, 10, 10)

	repo := NewBookingRepository(pool)
	svc := app.NewBookingService(repo, alwaysApprove{}, clock.NewSystem())

	var wg sync.WaitGroup
	results := make([]app.BookingResult, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.AttemptBooking(ctx, app.AttemptBookingInput{
				UserID:         fmt.Sprintf("user-%d", i),
				TierID:         tierID,
				Quantity:       2,
				IdempotencyKey: "shared-key",
			})
		}(i)
	}
	wg.Wait()

	var bookingID string
	for i := 0; i < attempts; i++ {
		if errs[i] != nil {
			if errors.Is(errs[i], domain.ErrConcurrentConflict) {
				continue
			}
			t.Fatalf("attempt %d: unexpected error: %v", i, errs[i])
		}
		if bookingID == "" {
			bookingID = results[i].Booking.ID
		}
		if results[i].Booking.ID != bookingID {
			t.Fatalf("attempt %d: got booking %s, want %s", i, results[i].Booking.ID, bookingID)
		}
	}
	if bookingID == "" {
		t.Fatalf("expected at least one attempt to return the booking")
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE idempotency_key = 'shared-key'`).Scan(&count); err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one booking row, got %d", count)
	}
	if got := testutil.TierAvailable(t, ctx, pool, tierID); got != 8 {
		t.Fatalf("expected inventory consumed once (8 left), got %d", got)
	}
}

// The insert's conflict handling must not poison the surrounding
// transaction: after the statement reports a key collision, later reads in
// the same transaction still work.
func TestBookingRepository_CreateBookingConflictKeepsTxUsable(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	price := decimal.RequireFromString("10.00")
	_, tierID := testutil.InsertConcertAndTier(t, ctx, pool, "Conflict Tx Test", price, 10, 10)
	repo := NewBookingRepository(pool)

	existingID := testutil.InsertBooking(t, ctx, pool, domain.Booking{
		UserID:         "user-1",
		TierID:         tierID,
		Quantity:       1,
		UnitPrice:      price,
		TotalPrice:     price,
		Status:         domain.BookingStatusConfirmed,
		PaymentStatus:  domain.PaymentStatusSuccess,
		IdempotencyKey: "conflict-key",
	})

	err := repo.WithTx(ctx, func(txCtx context.Context) error {
		now := time.Now().UTC()
		err := repo.CreateBooking(txCtx, domain.Booking{
			ID:             "3e3e76f5-7a72-4fd1-8d96-7f0a9a3a1c44",
			UserID:         "user-2",
			TierID:         tierID,
			Quantity:       1,
			UnitPrice:      price,
			TotalPrice:     price,
			Status:         domain.BookingStatusPending,
			PaymentStatus:  domain.PaymentStatusPending,
			IdempotencyKey: "conflict-key",
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if !errors.Is(err, domain.ErrConcurrentConflict) {
			t.Fatalf("expected ErrConcurrentConflict, got %v", err)
		}

		found, err := repo.FindBookingByIdempotencyKey(txCtx, "conflict-key")
		if err != nil {
			t.Fatalf("re-read after conflict: %v", err)
		}
		if found == nil || found.ID != existingID {
			t.Fatalf("expected existing booking %s, got %+v", existingID, found)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

type alwaysApprove struct{}

func (alwaysApprove) Authorize(context.Context, decimal.Decimal) (bool, error) {
	return true, nil
}
