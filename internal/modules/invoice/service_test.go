package invoice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/formvoice/core/internal/database"
	"github.com/formvoice/core/internal/models"
	"github.com/formvoice/core/internal/modules/templates"
	"github.com/formvoice/core/internal/pkg/backend"
	"github.com/formvoice/core/internal/pkg/blobstore"
	"github.com/formvoice/core/internal/pkg/pagination"
	"github.com/go-playground/validator/v10"
)

func newServices(t *testing.T) (*Service, *templates.Service) {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	store, err := blobstore.NewLocal(t.TempDir(), "http://localhost/storage")
	if err != nil {
		t.Fatal(err)
	}
	be := backend.New(db)
	tpl := templates.NewService(be, store, "invoice-templates", 5<<20, nil, nil)
	if err := tpl.EnsureDefault(context.Background()); err != nil {
		t.Fatalf("default template: %v", err)
	}
	return NewService(be, tpl, nil, nil), tpl
}

func sample(number string) InvoiceDTO {
	return InvoiceDTO{
		CompanyName:     "Acme <b>Ltd</b>",
		InvoiceNumber:   number,
		InvoiceDate:     "2026-10-19",
		CustomerName:    "Jane Roe",
		CustomerEmail:   "jane@example.com",
		Items:           []models.InvoiceItem{{Name: "Widget", Quantity: 2, Price: 10.5}, {Name: "Bolt", Quantity: 1, Price: 4}},
		TaxAmount:       2.5,
		DiscountAmount:  1,
		AdditionalNotes: "Pay within **Net 30**",
		InvoiceType:     models.InvoiceProductSelling,
		BankName:        "First Bank",
		PaymentMethods:  []string{"card", "transfer"},
	}
}

func TestCreateComputesTotals(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServices(t)

	inv, err := svc.Create(ctx, sample("INV-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.Items[0].Total != 21 || inv.Subtotal() != 25 || inv.TotalAmount != 26.5 {
		t.Fatalf("unexpected totals %+v total=%v", inv.Items, inv.TotalAmount)
	}

	got, err := svc.Get(ctx, inv.ID)
	if err != nil || len(got.Items) != 2 || len(got.PaymentMethods) != 2 {
		t.Fatalf("get: %v %+v", err, got)
	}

	if _, err := svc.Create(ctx, sample("INV-1")); !errors.Is(err, backend.ErrConflict) {
		t.Fatalf("expected conflict on duplicate number, got %v", err)
	}
}

func TestCreateRejectsInvalidBody(t *testing.T) {
	svc, _ := newServices(t)
	dto := sample("INV-2")
	dto.InvoiceType = "gift"
	dto.CustomerEmail = "nope"
	dto.Items = append(dto.Items, models.InvoiceItem{Name: "", Quantity: -1})

	_, err := svc.Create(context.Background(), dto)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	fields := map[string]bool{}
	for _, fe := range verrs {
		fields[fe.Field()] = true
	}
	for _, want := range []string{"invoice_type", "customer_email", "name", "quantity"} {
		if !fields[want] {
			t.Fatalf("missing failure for %s in %v", want, verrs)
		}
	}

	dto = sample("INV-3")
	missing := "4b0c8a0e-2f8a-4a8e-9f3e-000000000000"
	dto.TemplateID = &missing
	if _, err := svc.Create(context.Background(), dto); !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("expected unknown template, got %v", err)
	}
}

func TestUpdateListDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServices(t)
	inv, _ := svc.Create(ctx, sample("INV-10"))
	salary := sample("PAY-1")
	salary.InvoiceType = models.InvoiceEmployeeSalary
	if _, err := svc.Create(ctx, salary); err != nil {
		t.Fatal(err)
	}

	dto := sample("INV-10")
	dto.Items = []models.InvoiceItem{{Name: "Service", Quantity: 3, Price: 100}}
	dto.TaxAmount, dto.DiscountAmount = 0, 0
	updated, err := svc.Update(ctx, inv.ID, dto)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Items) != 1 || updated.TotalAmount != 300 {
		t.Fatalf("update not applied: %+v", updated)
	}

	items, pag, err := svc.List(ctx, models.InvoiceEmployeeSalary, pagination.Normalize(1, 10))
	if err != nil || len(items) != 1 || pag.Total != 1 || items[0].InvoiceNumber != "PAY-1" {
		t.Fatalf("filtered list: %v %+v", err, items)
	}
	if _, pag, _ := svc.List(ctx, "", pagination.Normalize(1, 10)); pag.Total != 2 {
		t.Fatalf("expected 2 invoices, got %d", pag.Total)
	}

	if err := svc.Delete(ctx, inv.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, inv.ID); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Update(ctx, inv.ID, dto); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
}

func TestRenderWithDefaultAndCustomTemplates(t *testing.T) {
	ctx := context.Background()
	svc, tpl := newServices(t)

	inv, err := svc.Create(ctx, sample("INV-20"))
	if err != nil {
		t.Fatal(err)
	}
	out, err := svc.Render(ctx, inv.ID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	body := string(out.Body)
	for _, want := range []string{"INV-20", "26.50", "<strong>Net 30</strong>", "Acme &lt;b&gt;Ltd&lt;/b&gt;", "card, transfer"} {
		if !strings.Contains(body, want) {
			t.Fatalf("rendered body missing %q:\n%s", want, body)
		}
	}

	custom, err := tpl.Upload(ctx, templates.Upload{
		Name:     "Compact",
		Filename: "compact.html",
		Data:     []byte(`<p>{{.Title}} {{.Invoice.InvoiceNumber}} {{money .Subtotal}}</p>`),
	})
	if err != nil {
		t.Fatal(err)
	}
	dto := sample("INV-21")
	dto.TemplateID = &custom.ID
	inv, err = svc.Create(ctx, dto)
	if err != nil {
		t.Fatal(err)
	}
	out, err = svc.Render(ctx, inv.ID)
	if err != nil || string(out.Body) != "<p>Invoice INV-21 25.00</p>" || out.TemplateID != custom.ID {
		t.Fatalf("custom render: %v %q", err, out.Body)
	}

	vue, err := tpl.Upload(ctx, templates.Upload{Name: "Vue", Filename: "invoice.vue", Data: []byte("<template><div/></template>")})
	if err != nil {
		t.Fatal(err)
	}
	dto = sample("INV-22")
	dto.TemplateID = &vue.ID
	inv, _ = svc.Create(ctx, dto)
	if _, err := svc.Render(ctx, inv.ID); !errors.Is(err, ErrClientRendered) {
		t.Fatalf("expected client rendered error, got %v", err)
	}

	broken, _ := tpl.Upload(ctx, templates.Upload{Name: "Broken", Filename: "broken.html", Data: []byte("{{.Nope")})
	dto = sample("INV-23")
	dto.TemplateID = &broken.ID
	inv, _ = svc.Create(ctx, dto)
	if _, err := svc.Render(ctx, inv.ID); !errors.Is(err, ErrBadTemplate) {
		t.Fatalf("expected bad template error, got %v", err)
	}
}
