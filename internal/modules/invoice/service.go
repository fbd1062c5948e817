package invoice

import (
	"context"
	"reflect"
	"strings"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/models"
	"github.com/formvoice/core/internal/pkg/actionstate"
	"github.com/formvoice/core/internal/pkg/backend"
	"github.com/formvoice/core/internal/pkg/events"
	"github.com/formvoice/core/internal/pkg/pagination"
	"github.com/formvoice/core/internal/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const ErrUnknownTemplate = errors.Sentinel("template does not exist or is inactive")

// TemplateSource resolves and reads invoice templates.
type TemplateSource interface {
	Select(ctx context.Context, id string) (*models.InvoiceTemplateModel, error)
	Markup(ctx context.Context, t *models.InvoiceTemplateModel) ([]byte, error)
}

type Service struct {
	be        backend.Backend
	templates TemplateSource
	hub       *events.Hub
	log       *zap.Logger
	validate  *validator.Validate
	state     *actionstate.State
}

func NewService(be backend.Backend, templates TemplateSource, hub *events.Hub, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		be:        be,
		templates: templates,
		hub:       hub,
		log:       log.Named("invoice"),
		validate:  newValidator(),
		state:     actionstate.New(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("invoice_type", func(fl validator.FieldLevel) bool {
		return models.InvoiceType(fl.Field().String()).Valid()
	})
	return v
}

func (s *Service) Status() actionstate.Snapshot { return s.state.Snapshot() }

// check validates the body and confirms a referenced template is usable.
func (s *Service) check(ctx context.Context, dto InvoiceDTO) error {
	if err := s.validate.Struct(dto); err != nil {
		return errors.WithStack(err)
	}
	if dto.TemplateID != nil {
		if _, err := s.templates.Select(ctx, *dto.TemplateID); err != nil {
			if errors.Is(err, backend.ErrNotFound) {
				return errors.WrapIff(ErrUnknownTemplate, "%s", *dto.TemplateID)
			}
			return err
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, invoiceType models.InvoiceType, pq pagination.Query) ([]models.InvoiceModel, response.Pagination, error) {
	q := backend.Query{Order: []backend.Order{{Column: "created_at", Desc: true}}}
	if invoiceType != "" {
		q.Filters = append(q.Filters, backend.Where("invoice_type", string(invoiceType)))
	}
	total, err := s.be.Count(ctx, models.TableInvoices, q)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	items := []models.InvoiceModel{}
	if err := s.be.Query(ctx, models.TableInvoices, pq.Apply(q), &items); err != nil {
		return nil, response.Pagination{}, err
	}
	return items, pq.Meta(total), nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.InvoiceModel, error) {
	var row models.InvoiceModel
	if err := s.be.Get(ctx, models.TableInvoices, id, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Service) Create(ctx context.Context, dto InvoiceDTO) (*models.InvoiceModel, error) {
	var row *models.InvoiceModel
	err := s.state.Run("create_invoice", func() error {
		if err := s.check(ctx, dto); err != nil {
			return err
		}
		row = dto.toModel()
		return s.be.Insert(ctx, models.TableInvoices, row)
	})
	if err != nil {
		return nil, err
	}
	s.hub.Publish(events.InvoiceCreated, map[string]string{"id": row.ID})
	return row, nil
}

// Update replaces every editable column of an invoice.
func (s *Service) Update(ctx context.Context, id string, dto InvoiceDTO) (*models.InvoiceModel, error) {
	var row models.InvoiceModel
	err := s.state.Run("update_invoice", func() error {
		if err := s.check(ctx, dto); err != nil {
			return err
		}
		m := dto.toModel()
		items, err := json.Marshal(m.Items)
		if err != nil {
			return errors.WithStack(err)
		}
		return s.be.Update(ctx, models.TableInvoices, id, map[string]any{
			"company_name":     m.CompanyName,
			"company_address":  m.CompanyAddress,
			"company_phone":    m.CompanyPhone,
			"company_email":    m.CompanyEmail,
			"company_website":  m.CompanyWebsite,
			"invoice_number":   m.InvoiceNumber,
			"invoice_date":     m.InvoiceDate,
			"customer_name":    m.CustomerName,
			"customer_email":   m.CustomerEmail,
			"customer_phone":   m.CustomerPhone,
			"po_number":        m.PONumber,
			"items":            string(items),
			"tax_amount":       m.TaxAmount,
			"discount_amount":  m.DiscountAmount,
			"total_amount":     m.TotalAmount,
			"additional_notes": m.AdditionalNotes,
			"terms_conditions": m.TermsConditions,
			"invoice_type":     string(m.InvoiceType),
			"template_id":      m.TemplateID,
			"bank_name":        m.BankName,
			"account_number":   m.AccountNumber,
			"routing_number":   m.RoutingNumber,
			"swift_code":       m.SwiftCode,
			"iban":             m.IBAN,
			"account_holder":   m.AccountHolder,
			"payment_methods":  m.PaymentMethods,
		}, &row)
	})
	if err != nil {
		return nil, err
	}
	s.hub.Publish(events.InvoiceUpdated, map[string]string{"id": id})
	return &row, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.state.Run("delete_invoice", func() error {
		n, err := s.be.Delete(ctx, models.TableInvoices, &models.InvoiceModel{}, backend.Where("id", id))
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.WithStack(backend.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.hub.Publish(events.InvoiceDeleted, map[string]string{"id": id})
	return nil
}
