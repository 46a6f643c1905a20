package http

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates holds the three thin pages this service renders. Everything
// customer-facing beyond these lives in the storefront.
type Templates struct {
	paymentForm *template.Template
	wait        *template.Template
	errorPage   *template.Template
}

func NewTemplates() (*Templates, error) {
	paymentForm, err := template.ParseFS(templateFS, "templates/payment_form.html")
	if err != nil {
		return nil, err
	}
	wait, err := template.ParseFS(templateFS, "templates/wait.html")
	if err != nil {
		return nil, err
	}
	errorPage, err := template.ParseFS(templateFS, "templates/error.html")
	if err != nil {
		return nil, err
	}
	return &Templates{paymentForm: paymentForm, wait: wait, errorPage: errorPage}, nil
}

type paymentFormData struct {
	Language   string
	GatewayURL string
	Params     map[string]string
}

type waitPageData struct {
	TransactionID     string
	MerchantReference string
	StatusURL         string
	ErrorURL          string
	MaxAttempts       int
	WaitMs            int
}

type errorPageData struct {
	TransactionID string
}

func (t *Templates) renderPaymentForm(w io.Writer, data paymentFormData) error {
	return t.paymentForm.Execute(w, data)
}

func (t *Templates) renderWait(w io.Writer, data waitPageData) error {
	return t.wait.Execute(w, data)
}

func (t *Templates) renderError(w io.Writer, data errorPageData) error {
	return t.errorPage.Execute(w, data)
}
