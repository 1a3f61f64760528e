package sequence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rbelarbi/fatoora/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSequenceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.SequenceCounter{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// single connection serializes writers, sqlite has no row locks
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestNextSequential(t *testing.T) {
	db := setupSequenceTestDB(t)
	g := NewGenerator()
	for want := int64(1); want <= 5; want++ {
		got, err := g.Next(db, ClassInvoice, 2026)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("got %d, want %d", got, want)
		}
	}
}

func TestNextIndependentPerKey(t *testing.T) {
	db := setupSequenceTestDB(t)
	g := NewGenerator()
	if _, err := g.Next(db, ClassInvoice, 2026); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := g.Next(db, ClassInvoice, 2026); err != nil {
		t.Fatalf("next: %v", err)
	}

	// a new year restarts at 1
	n, err := g.Next(db, ClassInvoice, 2027)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if n != 1 {
		t.Fatalf("new year should restart at 1, got %d", n)
	}

	// another class has its own counter
	n, err = g.Next(db, ClassProduct, 2026)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if n != 1 {
		t.Fatalf("product class should start at 1, got %d", n)
	}
}

func TestNextRollbackReleasesNumber(t *testing.T) {
	db := setupSequenceTestDB(t)
	g := NewGenerator()

	tx := db.Begin()
	n, err := g.Next(tx, ClassInvoice, 2026)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d, want 1", n)
	}
	tx.Rollback()

	// the aborted allocation leaves no gap
	n, err = g.Next(db, ClassInvoice, 2026)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if n != 1 {
		t.Fatalf("after rollback got %d, want 1", n)
	}
}

func TestNextConcurrentUnique(t *testing.T) {
	db := setupSequenceTestDB(t)
	g := NewGenerator()

	const workers = 20
	results := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// increment and read are a single statement, so this is
			// safe even on the bare pool handle
			n, err := g.Next(db, ClassInvoice, 2026)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	assertUnique(t, results, workers)
}

func TestNextConcurrentUniqueInTransactions(t *testing.T) {
	db := setupSequenceTestDB(t)
	g := NewGenerator()

	// production shape: every allocation runs inside the transaction
	// persisting its document
	const workers = 20
	results := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				n, err := g.Next(tx, ClassInvoice, 2026)
				if err != nil {
					return err
				}
				results <- n
				return nil
			})
			if err != nil {
				t.Errorf("transaction: %v", err)
			}
		}()
	}
	wg.Wait()
	close(results)

	assertUnique(t, results, workers)
}

func assertUnique(t *testing.T, results chan int64, want int) {
	t.Helper()
	seen := make(map[int64]bool)
	for n := range results {
		if seen[n] {
			t.Fatalf("duplicate sequence number %d", n)
		}
		seen[n] = true
	}
	if len(seen) != want {
		t.Fatalf("got %d unique numbers, want %d", len(seen), want)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		prefix string
		year   int
		n      int64
		want   string
	}{
		{"FAC", 2026, 1, "FAC-2026-00001"},
		{"FAC", 2026, 42, "FAC-2026-00042"},
		{"FAC", 2026, 99999, "FAC-2026-99999"},
		{"FAC", 2026, 100000, "FAC-2026-100000"},
		{"PRD", 2025, 7, "PRD-2025-00007"},
		{"PMT", 2026, 310, "PMT-2026-00310"},
	}
	for _, tt := range tests {
		if got := Format(tt.prefix, tt.year, tt.n); got != tt.want {
			t.Errorf("Format(%s, %d, %d) = %s, want %s", tt.prefix, tt.year, tt.n, got, tt.want)
		}
	}
}
