package invoice

import (
	"math"

	"github.com/formvoice/core/internal/models"
)

// InvoiceDTO is the create/replace body for an invoice.
type InvoiceDTO struct {
	CompanyName     string               `json:"company_name"      validate:"required,max=255"`
	CompanyAddress  string               `json:"company_address"`
	CompanyPhone    string               `json:"company_phone"     validate:"max=64"`
	CompanyEmail    string               `json:"company_email"     validate:"omitempty,email"`
	CompanyWebsite  string               `json:"company_website"   validate:"omitempty,url"`
	InvoiceNumber   string               `json:"invoice_number"    validate:"required,max=64"`
	InvoiceDate     string               `json:"invoice_date"      validate:"required,datetime=2006-01-02"`
	CustomerName    string               `json:"customer_name"     validate:"required,max=255"`
	CustomerEmail   string               `json:"customer_email"    validate:"omitempty,email"`
	CustomerPhone   string               `json:"customer_phone"    validate:"max=64"`
	PONumber        string               `json:"po_number"         validate:"max=64"`
	Items           []models.InvoiceItem `json:"items"             validate:"required,min=1,dive"`
	TaxAmount       float64              `json:"tax_amount"        validate:"gte=0"`
	DiscountAmount  float64              `json:"discount_amount"   validate:"gte=0"`
	AdditionalNotes string               `json:"additional_notes"`
	TermsConditions string               `json:"terms_conditions"`
	InvoiceType     models.InvoiceType   `json:"invoice_type"      validate:"required,invoice_type"`
	TemplateID      *string              `json:"template_id"       validate:"omitempty,uuid"`
	BankName        string               `json:"bank_name"`
	AccountNumber   string               `json:"account_number"    validate:"max=64"`
	RoutingNumber   string               `json:"routing_number"    validate:"max=64"`
	SwiftCode       string               `json:"swift_code"        validate:"max=32"`
	IBAN            string               `json:"iban"              validate:"max=64"`
	AccountHolder   string               `json:"account_holder"`
	PaymentMethods  []string             `json:"payment_methods"`
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// items recomputes each line total from quantity and price.
func (d InvoiceDTO) items() ([]models.InvoiceItem, float64) {
	out := make([]models.InvoiceItem, len(d.Items))
	var subtotal float64
	for i, it := range d.Items {
		it.Total = round2(it.Quantity * it.Price)
		subtotal += it.Total
		out[i] = it
	}
	return out, round2(subtotal)
}

func (d InvoiceDTO) toModel() *models.InvoiceModel {
	items, subtotal := d.items()
	return &models.InvoiceModel{
		CompanyName:     d.CompanyName,
		CompanyAddress:  d.CompanyAddress,
		CompanyPhone:    d.CompanyPhone,
		CompanyEmail:    d.CompanyEmail,
		CompanyWebsite:  d.CompanyWebsite,
		InvoiceNumber:   d.InvoiceNumber,
		InvoiceDate:     d.InvoiceDate,
		CustomerName:    d.CustomerName,
		CustomerEmail:   d.CustomerEmail,
		CustomerPhone:   d.CustomerPhone,
		PONumber:        d.PONumber,
		Items:           items,
		TaxAmount:       d.TaxAmount,
		DiscountAmount:  d.DiscountAmount,
		TotalAmount:     round2(subtotal + d.TaxAmount - d.DiscountAmount),
		AdditionalNotes: d.AdditionalNotes,
		TermsConditions: d.TermsConditions,
		InvoiceType:     d.InvoiceType,
		TemplateID:      d.TemplateID,
		BankName:        d.BankName,
		AccountNumber:   d.AccountNumber,
		RoutingNumber:   d.RoutingNumber,
		SwiftCode:       d.SwiftCode,
		IBAN:            d.IBAN,
		AccountHolder:   d.AccountHolder,
		PaymentMethods:  models.StringArray(d.PaymentMethods),
	}
}
