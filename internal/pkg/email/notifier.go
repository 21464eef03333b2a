// internal/pkg/email/notifier.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

// Notifier sends buyer-facing transactional mail over SMTP. It implements
// order.Notifier.
type Notifier struct {
	config    *config.Config
	templates map[string]*template.Template
	log       *logrus.Logger
}

// NewNotifier creates a new email notifier
func NewNotifier(cfg *config.Config, log *logrus.Logger) (*Notifier, error) {
	n := &Notifier{
		config:    cfg,
		templates: make(map[string]*template.Template),
		log:       log,
	}
	if err := n.loadTemplates(); err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	return n, nil
}

// SendOrderConfirmation mails a purchase summary after checkout
func (n *Notifier) SendOrderConfirmation(ctx context.Context, email string, orders []order.Order) error {
	var total int64
	lines := make([]confirmationLine, 0, len(orders))
	for _, o := range orders {
		lines = append(lines, confirmationLine{
			OrderID:   o.ID,
			Product:   o.Product.Name,
			Quantity:  o.Quantity,
			PricePaid: formatPrice(o.PricePaid),
		})
		total += o.PricePaid
	}

	body, err := n.renderTemplate("order_confirmation", confirmationData{
		StoreName: n.config.External.Email.FromName,
		Lines:     lines,
		Total:     formatPrice(total),
	})
	if err != nil {
		return err
	}

	return n.send(ctx, email, "Order Confirmation", body)
}

// SendOrderHistory mails past orders with their fulfillment links
func (n *Notifier) SendOrderHistory(ctx context.Context, email string, entries []order.HistoryEntry) error {
	lines := make([]historyLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, historyLine{
			OrderID:     e.Order.ID,
			Product:     e.Order.Product.Name,
			PricePaid:   formatPrice(e.Order.PricePaid),
			PurchasedAt: e.Order.CreatedAt.Format("2006-01-02"),
			DownloadURL: fmt.Sprintf("%s/downloads/%s", n.config.External.Storage.PublicBase, e.DownloadToken),
		})
	}

	body, err := n.renderTemplate("order_history", historyData{
		StoreName: n.config.External.Email.FromName,
		Lines:     lines,
	})
	if err != nil {
		return err
	}

	return n.send(ctx, email, "Your Order History", body)
}

type confirmationLine struct {
	OrderID   uint
	Product   string
	Quantity  int
	PricePaid string
}

type confirmationData struct {
	StoreName string
	Lines     []confirmationLine
	Total     string
}

type historyLine struct {
	OrderID     uint
	Product     string
	PricePaid   string
	PurchasedAt string
	DownloadURL string
}

type historyData struct {
	StoreName string
	Lines     []historyLine
}

func (n *Notifier) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, ok := n.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// formatPrice renders a smallest-unit amount as a decimal string
func formatPrice(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

func (n *Notifier) loadTemplates() error {
	sources := map[string]string{
		"order_confirmation": orderConfirmationTemplate,
		"order_history":      orderHistoryTemplate,
	}

	for name, src := range sources {
		tmpl, err := template.New(name).Parse(src)
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		n.templates[name] = tmpl
	}
	return nil
}

const orderConfirmationTemplate = `
<html>
<body>
	<h1>Thanks for your order!</h1>
	<p>Your order at {{.StoreName}} has been received.</p>
	<table>
		<tr><th>Order</th><th>Product</th><th>Qty</th><th>Paid</th></tr>
		{{range .Lines}}
		<tr><td>#{{.OrderID}}</td><td>{{.Product}}</td><td>{{.Quantity}}</td><td>{{.PricePaid}}</td></tr>
		{{end}}
	</table>
	<p>Total: {{.Total}}</p>
</body>
</html>`

const orderHistoryTemplate = `
<html>
<body>
	<h1>Your orders at {{.StoreName}}</h1>
	{{if .Lines}}
	<table>
		<tr><th>Order</th><th>Product</th><th>Paid</th><th>Date</th><th>Download</th></tr>
		{{range .Lines}}
		<tr>
			<td>#{{.OrderID}}</td><td>{{.Product}}</td><td>{{.PricePaid}}</td><td>{{.PurchasedAt}}</td>
			<td><a href="{{.DownloadURL}}">Download</a></td>
		</tr>
		{{end}}
	</table>
	{{else}}
	<p>You have no orders yet.</p>
	{{end}}
</body>
</html>`
