package models

// InvoiceType classifies what an invoice is for.
type InvoiceType string

const (
	InvoiceProductSelling  InvoiceType = "product_selling"
	InvoiceProductPurchase InvoiceType = "product_purchase"
	InvoiceEmployeeSalary  InvoiceType = "employee_salary"
)

func (t InvoiceType) Valid() bool {
	switch t {
	case InvoiceProductSelling, InvoiceProductPurchase, InvoiceEmployeeSalary:
		return true
	}
	return false
}

// InvoiceItem is one billed line.
type InvoiceItem struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"     validate:"required"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
	Price    float64 `json:"price"    validate:"gte=0"`
	Total    float64 `json:"total"`
}

// InvoiceModel is a composed invoice rendered through an invoice template.
type InvoiceModel struct {
	Base
	CompanyName     string        `json:"company_name"               gorm:"size:255;not null"`
	CompanyAddress  string        `json:"company_address,omitempty"  gorm:"type:text"`
	CompanyPhone    string        `json:"company_phone,omitempty"    gorm:"size:64"`
	CompanyEmail    string        `json:"company_email,omitempty"    gorm:"size:255"`
	CompanyWebsite  string        `json:"company_website,omitempty"  gorm:"size:255"`
	InvoiceNumber   string        `json:"invoice_number"             gorm:"size:64;not null;uniqueIndex"`
	InvoiceDate     string        `json:"invoice_date"               gorm:"size:32;not null"`
	CustomerName    string        `json:"customer_name"              gorm:"size:255;not null"`
	CustomerEmail   string        `json:"customer_email,omitempty"   gorm:"size:255"`
	CustomerPhone   string        `json:"customer_phone,omitempty"   gorm:"size:64"`
	PONumber        string        `json:"po_number,omitempty"        gorm:"size:64"`
	Items           []InvoiceItem `json:"items"                      gorm:"type:longtext;serializer:json"`
	TaxAmount       float64       `json:"tax_amount"`
	DiscountAmount  float64       `json:"discount_amount"`
	TotalAmount     float64       `json:"total_amount"`
	AdditionalNotes string        `json:"additional_notes,omitempty" gorm:"type:text"`
	TermsConditions string        `json:"terms_conditions,omitempty" gorm:"type:text"`
	InvoiceType     InvoiceType   `json:"invoice_type"               gorm:"size:32;not null;index"`
	TemplateID      *string       `json:"template_id,omitempty"      gorm:"type:char(36);index"`
	BankName        string        `json:"bank_name,omitempty"        gorm:"size:255"`
	AccountNumber   string        `json:"account_number,omitempty"   gorm:"size:64"`
	RoutingNumber   string        `json:"routing_number,omitempty"   gorm:"size:64"`
	SwiftCode       string        `json:"swift_code,omitempty"       gorm:"size:32"`
	IBAN            string        `json:"iban,omitempty"             gorm:"size:64"`
	AccountHolder   string        `json:"account_holder,omitempty"   gorm:"size:255"`
	PaymentMethods  StringArray   `json:"payment_methods"            gorm:"type:longtext"`
}

func (InvoiceModel) TableName() string { return TableInvoices }

// Subtotal sums the line totals.
func (m InvoiceModel) Subtotal() float64 {
	var sum float64
	for _, it := range m.Items {
		sum += it.Total
	}
	return sum
}
