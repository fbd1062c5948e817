package invoice

import (
	"bytes"
	"context"
	"html/template"
	"strconv"
	"strings"

	"emperror.dev/errors"
	"github.com/formvoice/core/internal/models"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
)

const (
	ErrClientRendered = errors.Sentinel("vue templates are rendered by the client")
	ErrBadTemplate    = errors.Sentinel("template cannot be rendered")
)

var markdown = goldmark.New()

var funcs = template.FuncMap{
	"money": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	"join":  strings.Join,
}

var titles = map[models.InvoiceType]string{
	models.InvoiceProductSelling:  "Invoice",
	models.InvoiceProductPurchase: "Purchase Order",
	models.InvoiceEmployeeSalary:  "Salary Slip",
}

type view struct {
	Invoice  *models.InvoiceModel
	Title    string
	Subtotal float64
	Notes    template.HTML
	Terms    template.HTML
}

// Rendered is a finished invoice document.
type Rendered struct {
	TemplateID string
	Body       []byte
}

func toHTML(src string) (template.HTML, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", errors.WithStack(err)
	}
	return template.HTML(buf.String()), nil
}

// Render fills the invoice's template, or the default one, with its data.
func (s *Service) Render(ctx context.Context, id string) (Rendered, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return Rendered{}, err
	}
	tid := ""
	if inv.TemplateID != nil {
		tid = *inv.TemplateID
	}
	tpl, err := s.templates.Select(ctx, tid)
	if err != nil {
		return Rendered{}, err
	}
	if tpl.TemplateType == models.TemplateTypeVue {
		return Rendered{}, errors.WithDetails(errors.WithStack(ErrClientRendered), "template", tpl.ID)
	}
	markup, err := s.templates.Markup(ctx, tpl)
	if err != nil {
		return Rendered{}, err
	}

	t, err := template.New(tpl.Name).Funcs(funcs).Parse(string(markup))
	if err != nil {
		return Rendered{}, errors.WrapIff(ErrBadTemplate, "%s: %v", tpl.Name, err)
	}
	v := view{Invoice: inv, Title: titles[inv.InvoiceType], Subtotal: inv.Subtotal()}
	if v.Notes, err = toHTML(inv.AdditionalNotes); err != nil {
		return Rendered{}, err
	}
	if v.Terms, err = toHTML(inv.TermsConditions); err != nil {
		return Rendered{}, err
	}

	var out bytes.Buffer
	if err := t.Execute(&out, v); err != nil {
		s.log.Warn("template execution failed", zap.String("template", tpl.ID), zap.Error(err))
		return Rendered{}, errors.WrapIff(ErrBadTemplate, "%s: %v", tpl.Name, err)
	}
	return Rendered{TemplateID: tpl.ID, Body: out.Bytes()}, nil
}
