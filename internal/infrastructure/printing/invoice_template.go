package printing

import (
	"bytes"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salonsuite/backend/internal/domain/billing"
	"github.com/salonsuite/backend/internal/domain/shared/valueobject"
)

// invoiceTemplate is the built-in A4 invoice layout. Amounts are EUR and
// dates use the French day-first convention.
const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Number}}</title>
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; color: #1a1a1a; font-size: 13px; }
  .header { display: flex; justify-content: space-between; margin-bottom: 32px; }
  .header h1 { font-size: 24px; margin: 0; }
  .meta { text-align: right; }
  .meta div { margin-bottom: 4px; }
  .client { margin-bottom: 24px; }
  .label { color: #666; font-size: 11px; text-transform: uppercase; }
  table { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
  th { text-align: left; border-bottom: 2px solid #1a1a1a; padding: 8px 4px; font-size: 11px; text-transform: uppercase; }
  td { border-bottom: 1px solid #ddd; padding: 8px 4px; }
  .num { text-align: right; }
  .totals { width: 280px; margin-left: auto; }
  .totals td { border: none; padding: 4px; }
  .totals .grand td { border-top: 2px solid #1a1a1a; font-weight: bold; font-size: 15px; }
  .status { display: inline-block; padding: 2px 10px; border: 1px solid #1a1a1a; border-radius: 3px; font-size: 11px; }
  .notes { margin-top: 32px; color: #666; font-size: 12px; }
</style>
</head>
<body>
  <div class="header">
    <div>
      <h1>Facture {{.Number}}</h1>
      <span class="status">{{.Status}}</span>
    </div>
    <div class="meta">
      <div><span class="label">Date d'émission</span> {{formatDate .IssueDate}}</div>
      <div><span class="label">Échéance</span> {{formatDate .DueDate}}</div>
    </div>
  </div>

  <div class="client">
    <div class="label">Facturé à</div>
    <div>{{.ClientName}}</div>
  </div>

  <table>
    <thead>
      <tr>
        <th>Désignation</th>
        <th class="num">Qté</th>
        <th class="num">Prix unitaire</th>
        <th class="num">Total</th>
      </tr>
    </thead>
    <tbody>
      {{range .Items}}
      <tr>
        <td>{{.Name}}{{if .StylistName}} <span class="label">({{.StylistName}})</span>{{end}}</td>
        <td class="num">{{.Quantity}}</td>
        <td class="num">{{formatAmount .UnitPrice}}</td>
        <td class="num">{{formatAmount .Total}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>

  <table class="totals">
    <tr><td>Sous-total</td><td class="num">{{formatAmount .Subtotal}}</td></tr>
    {{if not .Discount.IsZero}}<tr><td>Remise</td><td class="num">-{{formatAmount .Discount}}</td></tr>{{end}}
    <tr><td>TVA ({{.TaxRate}} %)</td><td class="num">{{formatAmount .TaxAmount}}</td></tr>
    <tr class="grand"><td>Total</td><td class="num">{{formatAmount .Total}}</td></tr>
    {{if .PaidAmount.IsPositive}}
    <tr><td>Réglé</td><td class="num">{{formatAmount .PaidAmount}}</td></tr>
    <tr><td>Reste dû</td><td class="num">{{formatAmount .Outstanding}}</td></tr>
    {{end}}
  </table>

  {{if .Notes}}<div class="notes">{{.Notes}}</div>{{end}}
</body>
</html>`

var invoiceTmpl = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Format("02/01/2006")
	},
	"formatAmount": func(d decimal.Decimal) string {
		return valueobject.NewMoneyEUR(d).Display()
	},
}).Parse(invoiceTemplate))

// RenderInvoiceHTML renders an invoice into the built-in HTML layout
func RenderInvoiceHTML(invoice *billing.Invoice) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, invoice); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "invoice template execution failed", err)
	}
	return buf.String(), nil
}
