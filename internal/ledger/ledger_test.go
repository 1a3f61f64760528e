package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rbelarbi/fatoora/internal/errs"
	"github.com/rbelarbi/fatoora/internal/models"
	"github.com/rbelarbi/fatoora/internal/sequence"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Client{}, &models.Product{},
		&models.Invoice{}, &models.InvoiceItem{}, &models.Transaction{},
		&models.SequenceCounter{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedLedgerFixtures(t *testing.T, db *gorm.DB) (user models.User, client models.Client, product models.Product) {
	t.Helper()
	user = models.User{Email: "supplier@test", Password: "x", CompanyName: "Fournisseur SARL"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	client = models.Client{
		UserID: user.ID, Name: "Client SPA", Address: "1 rue Didouche, Alger",
		NIF: "000016001234567", NIS: "000016009876543", RC: "16/00-1234567", ART: "16012345678",
		PaymentTerms: 30,
	}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	product = models.Product{
		UserID: user.ID, Name: "Ciment 50kg", Reference: "PRD-2026-00001",
		PurchasePrice: decimal.NewFromInt(80), SellingPrice: decimal.NewFromInt(100),
		Stock: 500, MinStock: 50, IsActive: true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("product: %v", err)
	}
	return
}

func fixedClock(year int) func() time.Time {
	return func() time.Time { return time.Date(year, 3, 15, 10, 0, 0, 0, time.UTC) }
}

func newTestLedger(db *gorm.DB) *Ledger {
	return New(db, sequence.NewGenerator(), WithClock(fixedClock(2026)))
}

func TestCreateInvoice(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)
	ctx := context.Background()

	inv, err := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.Number != "FAC-2026-00001" {
		t.Errorf("number = %s, want FAC-2026-00001", inv.Number)
	}
	if inv.Status != models.InvoiceStatusDraft {
		t.Errorf("status = %s, want draft", inv.Status)
	}
	if !inv.TotalHT.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("HT = %s, want 1000", inv.TotalHT)
	}
	if !inv.TVA.Equal(decimal.NewFromInt(190)) {
		t.Errorf("TVA = %s, want 190", inv.TVA)
	}
	if !inv.TAP.Equal(decimal.NewFromInt(20)) {
		t.Errorf("TAP = %s, want 20", inv.TAP)
	}
	if !inv.TotalTTC.Equal(decimal.NewFromInt(1210)) {
		t.Errorf("TTC = %s, want 1210", inv.TotalTTC)
	}
	// due date defaults to issue date plus client payment terms
	if inv.DueDate == nil {
		t.Fatal("due date not set")
	}
	wantDue := fixedClock(2026)().AddDate(0, 0, 30)
	if !inv.DueDate.Equal(wantDue) {
		t.Errorf("due date = %v, want %v", inv.DueDate, wantDue)
	}
	// unit price snapshots the current selling price
	if len(inv.Items) != 1 || !inv.Items[0].UnitPrice.Equal(product.SellingPrice) {
		t.Errorf("item snapshot wrong: %+v", inv.Items)
	}
}

func TestCreateInvoiceSequentialNumbers(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)
	ctx := context.Background()

	for i, want := range []string{"FAC-2026-00001", "FAC-2026-00002", "FAC-2026-00003"} {
		inv, err := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
			ClientID: client.ID,
			Items:    []ItemInput{{ProductID: product.ID, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if inv.Number != want {
			t.Errorf("invoice %d: number = %s, want %s", i, inv.Number, want)
		}
	}
}

func TestCreateInvoiceNoItems(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, _ := seedLedgerFixtures(t, db)
	l := newTestLedger(db)

	_, err := l.CreateInvoice(context.Background(), user.ID, CreateInvoiceInput{ClientID: client.ID})
	var ve *errs.ValidationError
	if !errors.As(err, &ve) || ve.Field != "items" {
		t.Fatalf("want validation error on items, got %v", err)
	}
}

func TestCreateInvoiceUnknownClient(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, _, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)

	_, err := l.CreateInvoice(context.Background(), user.ID, CreateInvoiceInput{
		ClientID: 9999,
		Items:    []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestCreateInvoiceFailureConsumesNoNumber(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)
	ctx := context.Background()

	// unknown product aborts the transaction after validation
	_, err := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: 9999, Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected error for unknown product")
	}

	inv, err := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.Number != "FAC-2026-00001" {
		t.Errorf("aborted create consumed a number: got %s", inv.Number)
	}
}

func TestAddItemRecomputesTotals(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)
	ctx := context.Background()

	inv, err := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := l.AddItem(ctx, user.ID, inv.ID, ItemInput{ProductID: product.ID, Quantity: 5}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	got, err := l.Get(ctx, user.ID, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.TotalHT.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("HT after add = %s, want 1000", got.TotalHT)
	}
	if !got.TotalTTC.Equal(decimal.NewFromInt(1210)) {
		t.Errorf("TTC after add = %s, want 1210", got.TotalTTC)
	}
}

func TestAddItemToValidatedInvoice(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)
	ctx := context.Background()

	inv, err := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := l.Validate(ctx, user.ID, inv.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}

	_, err = l.AddItem(ctx, user.ID, inv.ID, ItemInput{ProductID: product.ID, Quantity: 1})
	var se *errs.InvalidStateError
	if !errors.As(err, &se) {
		t.Fatalf("want invalid state error, got %v", err)
	}
}

func TestRemoveItem(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)
	ctx := context.Background()

	inv, err := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Quantity: 2}, {ProductID: product.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	full, err := l.Get(ctx, user.ID, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := l.RemoveItem(ctx, user.ID, inv.ID, full.Items[0].ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	got, err := l.Get(ctx, user.ID, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(got.Items))
	}
	if !got.TotalHT.Equal(decimal.NewFromInt(300)) {
		t.Errorf("HT after remove = %s, want 300", got.TotalHT)
	}

	// removing an unknown item is a not-found, not a silent no-op
	err = l.RemoveItem(ctx, user.ID, inv.ID, 9999)
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestValidateEmptyInvoice(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)
	ctx := context.Background()

	inv, err := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	full, _ := l.Get(ctx, user.ID, inv.ID)
	if err := l.RemoveItem(ctx, user.ID, inv.ID, full.Items[0].ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	_, err = l.Validate(ctx, user.ID, inv.ID)
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestValidateTwice(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)
	ctx := context.Background()

	inv, err := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := l.Validate(ctx, user.ID, inv.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}
	_, err = l.Validate(ctx, user.ID, inv.ID)
	var se *errs.InvalidStateError
	if !errors.As(err, &se) {
		t.Fatalf("want invalid state, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)
	ctx := context.Background()

	// draft can be cancelled
	inv, _ := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	cancelled, err := l.Cancel(ctx, user.ID, inv.ID)
	if err != nil {
		t.Fatalf("cancel draft: %v", err)
	}
	if cancelled.Status != models.InvoiceStatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	// cancelled cannot be cancelled again
	_, err = l.Cancel(ctx, user.ID, inv.ID)
	var se *errs.InvalidStateError
	if !errors.As(err, &se) {
		t.Fatalf("want invalid state, got %v", err)
	}

	// validated can be cancelled
	inv2, _ := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if _, err := l.Validate(ctx, user.ID, inv2.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := l.Cancel(ctx, user.ID, inv2.ID); err != nil {
		t.Fatalf("cancel validated: %v", err)
	}
}

func TestGetScopedToOwner(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)
	ctx := context.Background()

	inv, _ := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
		ClientID: client.ID,
		Items:    []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})

	_, err := l.Get(ctx, user.ID+1, inv.ID)
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("foreign user should see not found, got %v", err)
	}
}

func TestOutstandingBalance(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)
	ctx := context.Background()

	mk := func(qty int) *models.Invoice {
		inv, err := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
			ClientID: client.ID,
			Items:    []ItemInput{{ProductID: product.ID, Quantity: qty}},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return inv
	}

	draft := mk(1)            // 121 TTC, draft: not outstanding
	validated := mk(2)        // 242 TTC, validated: outstanding
	cancelledInv := mk(4)     // cancelled: not outstanding
	_ = draft

	if _, err := l.Validate(ctx, user.ID, validated.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := l.Cancel(ctx, user.ID, cancelledInv.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	balance, err := l.OutstandingBalance(client.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(242)) {
		t.Errorf("balance = %s, want 242", balance)
	}
}

func TestListPagination(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
			ClientID: client.ID,
			Items:    []ItemInput{{ProductID: product.ID, Quantity: 1}},
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	invoices, total, err := l.List(ctx, user.ID, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(invoices) != 2 {
		t.Errorf("page size = %d, want 2", len(invoices))
	}

	// another user sees nothing
	_, total, err = l.List(ctx, user.ID+1, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 {
		t.Errorf("foreign user total = %d, want 0", total)
	}
}

func TestTotalPurchases(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db)
	ctx := context.Background()

	mk := func(qty int) *models.Invoice {
		inv, err := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
			ClientID: client.ID,
			Items:    []ItemInput{{ProductID: product.ID, Quantity: qty}},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := l.Validate(ctx, user.ID, inv.ID); err != nil {
			t.Fatalf("validate: %v", err)
		}
		return inv
	}
	settle := func(inv *models.Invoice, amount int64) {
		txn, err := l.RecordTransaction(ctx, user.ID, inv.ID, TransactionInput{
			Amount: decimal.NewFromInt(amount),
			Method: models.PaymentMethodCash,
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if _, err := l.CompleteTransaction(ctx, user.ID, txn.ID); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	paid := mk(2) // 242 TTC, fully settled below
	settle(paid, 242)
	partial := mk(10) // 1210 TTC, half settled: stays out of purchases
	settle(partial, 600)
	mk(4) // validated, unpaid

	total, err := l.TotalPurchases(client.ID)
	if err != nil {
		t.Fatalf("total purchases: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(242)) {
		t.Errorf("total purchases = %s, want 242", total)
	}

	// and the partial invoice still counts toward exposure
	balance, err := l.OutstandingBalance(client.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(1694)) { // 1210 + 484
		t.Errorf("balance = %s, want 1694", balance)
	}
}

func TestOverdueInvoices(t *testing.T) {
	db := setupLedgerTestDB(t)
	user, client, product := seedLedgerFixtures(t, db)
	l := newTestLedger(db) // clock fixed at 2026-03-15
	ctx := context.Background()

	pastDue := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	futureDue := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mk := func(due *time.Time) *models.Invoice {
		inv, err := l.CreateInvoice(ctx, user.ID, CreateInvoiceInput{
			ClientID: client.ID,
			DueDate:  due,
			Items:    []ItemInput{{ProductID: product.ID, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := l.Validate(ctx, user.ID, inv.ID); err != nil {
			t.Fatalf("validate: %v", err)
		}
		return inv
	}

	overdue := mk(&pastDue)
	mk(&futureDue)
	settled := mk(&pastDue)

	// fully pay the settled one: past due but paid is not overdue
	txn, err := l.RecordTransaction(ctx, user.ID, settled.ID, TransactionInput{
		Amount: decimal.NewFromInt(121),
		Method: models.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := l.CompleteTransaction(ctx, user.ID, txn.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := l.OverdueInvoices(ctx, user.ID, client.ID)
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("overdue count = %d, want 1 (%+v)", len(got), got)
	}
	if got[0].ID != overdue.ID {
		t.Errorf("overdue invoice = %d, want %d", got[0].ID, overdue.ID)
	}

	// foreign user sees none
	got, err = l.OverdueInvoices(ctx, user.ID+1, client.ID)
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("foreign user overdue count = %d, want 0", len(got))
	}
}
