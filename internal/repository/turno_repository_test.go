package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/turnosmed/api-turnos/internal/database"
	"github.com/turnosmed/api-turnos/internal/model"
)

// openTestDB connects to the MySQL instance named by the DB_* variables
// and ensures the schema exists.  Without DB_HOST the test is skipped,
// so the suite stays runnable on machines with no database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("DB_HOST")
	if host == "" {
		t.Skip("DB_HOST not set, skipping MySQL-backed tests")
	}
	db, err := database.Open(
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASS"),
		host,
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
	)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return db
}

// testServicio returns a service id unique to this run so rows from
// earlier runs cannot collide with the uniqueness index.
func testServicio() string {
	return fmt.Sprintf("it-svc-%d", time.Now().UnixNano())
}

func TestClaimUniqueIndexMutualExclusion(t *testing.T) {
	repo := NewTurnoRepo(openTestDB(t))
	ctx := context.Background()
	servicio := testServicio()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Claim(ctx, ClaimParams{
				Servicio: servicio,
				Usuario:  fmt.Sprintf("u%d", i),
				Fecha:    "2030-01-15",
				Hora:     "09:00",
			})
		}(i)
	}
	wg.Wait()

	var won, taken int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrSlotTaken):
			taken++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 || taken != n-1 {
		t.Fatalf("got %d winners and %d ErrSlotTaken, want 1 and %d", won, taken, n-1)
	}
}

func TestClaimReleaseReclaimLifecycle(t *testing.T) {
	repo := NewTurnoRepo(openTestDB(t))
	ctx := context.Background()
	servicio := testServicio()

	first, err := repo.Claim(ctx, ClaimParams{
		Servicio: servicio, Usuario: "u1", Fecha: "2030-01-15", Hora: "10:00",
	})
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}

	// The active row blocks a second claim on the tuple.
	if _, err := repo.Claim(ctx, ClaimParams{
		Servicio: servicio, Usuario: "u2", Fecha: "2030-01-15", Hora: "10:00",
	}); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("second claim err = %v, want ErrSlotTaken", err)
	}

	if _, err := repo.Release(ctx, first.ID, "u2"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("release by stranger err = %v, want ErrNotOwner", err)
	}

	released, err := repo.Release(ctx, first.ID, "u1")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Estado != model.EstadoCancelado || released.Metadata.CanceladoPor == nil {
		t.Fatalf("released row = %+v, want estado cancelado with cancelado_por set", released)
	}

	if _, err := repo.Release(ctx, first.ID, "u1"); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("double release err = %v, want ErrAlreadyCancelled", err)
	}

	// The cancelled row drops out of the active index entirely.
	if active, err := repo.FindActive(ctx, servicio, "2030-01-15", "10:00"); err != nil || active != nil {
		t.Fatalf("FindActive after release = %v, %v, want nil, nil", active, err)
	}
	if horas, err := repo.ListReservedTimes(ctx, servicio, "2030-01-15"); err != nil || len(horas) != 0 {
		t.Fatalf("ListReservedTimes after release = %v, %v, want empty", horas, err)
	}

	// A fresh claim on the freed tuple inserts a new history row.
	second, err := repo.Claim(ctx, ClaimParams{
		Servicio: servicio, Usuario: "u2", Fecha: "2030-01-15", Hora: "10:00",
	})
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("reclaim reused the cancelled row instead of inserting")
	}
	if second.Usuario != "u2" {
		t.Fatalf("reclaim owner = %q, want u2", second.Usuario)
	}
}
