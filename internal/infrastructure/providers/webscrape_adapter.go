package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/restohub/backend/internal/domain/integration"
	"github.com/restohub/backend/internal/domain/order"
	"github.com/restohub/backend/internal/domain/supplier"
	"github.com/restohub/backend/internal/domain/vault"
)

const (
	defaultScrapeTimeout = 90 * time.Second

	scrapeCatalogPath = "/catalog"
	scrapeOrderPath   = "/orders/new"
)

// Portal selector contract. Suppliers onboarded on the scrape path agree to
// keep these stable; anything else on the page may drift freely.
const (
	selLoginForm     = `form#login`
	selLoginUser     = `form#login input[name="username"]`
	selLoginPassword = `form#login input[name="password"]`
	selLoginSubmit   = `form#login button[type="submit"]`
	selLoginError    = `#login-error`
	selPortalNav     = `nav#portal-nav`
	selCatalogTable  = `table#catalog`
	selOrderForm     = `form#order-form`
	selOrderLines    = `form#order-form textarea[name="order_lines"]`
	selOrderNotes    = `form#order-form textarea[name="notes"]`
	selOrderSubmit   = `form#order-form button[type="submit"]`
)

// catalogExtractJS pulls the product table into JSON. It returns the empty
// string when the expected structure is missing so markup drift surfaces as
// an explicit schema failure, never as an empty catalog.
const catalogExtractJS = `(() => {
	const table = document.querySelector('table#catalog');
	if (!table || !table.tBodies.length) { return ""; }
	const cell = (tr, name) => {
		const td = tr.querySelector('td[data-field="' + name + '"]');
		return td === null ? null : td.textContent;
	};
	const rows = Array.from(table.tBodies[0].rows).map(tr => ({
		sku: cell(tr, 'sku'),
		name: cell(tr, 'name'),
		price: cell(tr, 'price'),
		unit: cell(tr, 'unit'),
		category: cell(tr, 'category'),
		availability: cell(tr, 'availability'),
	}));
	return JSON.stringify(rows);
})()`

// orderResultJS reads the outcome of an order form submission
const orderResultJS = `(() => {
	const ok = document.querySelector('#order-confirmation');
	if (ok) {
		return JSON.stringify({reference: ok.getAttribute('data-reference') || '', message: ok.textContent.trim()});
	}
	const fail = document.querySelector('#order-error');
	if (fail) {
		return JSON.stringify({error: fail.textContent.trim()});
	}
	return "";
})()`

// WebScrapeConfig tunes the headless browser behind the scrape adapter
type WebScrapeConfig struct {
	// Timeout bounds one full portal interaction
	Timeout time.Duration
	// RemoteURL points at a remote Chrome instance; empty launches locally
	RemoteURL string
	// NoSandbox runs Chrome without its sandbox (required under Docker/root)
	NoSandbox bool
}

// WebScrapeAdapter drives supplier portals that offer no API. It is the
// fragile corner of the fleet: every operation fails closed when the page
// no longer matches the selector contract.
type WebScrapeAdapter struct {
	config      *WebScrapeConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewWebScrapeAdapter creates the adapter for web_scrape suppliers
func NewWebScrapeAdapter(config *WebScrapeConfig, logger *zap.Logger) (*WebScrapeAdapter, error) {
	if config == nil {
		config = &WebScrapeConfig{}
	}
	if config.Timeout == 0 {
		config.Timeout = defaultScrapeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	adapter := &WebScrapeAdapter{config: config, logger: logger}
	adapter.initAllocator()
	return adapter, nil
}

// initAllocator initializes the Chrome allocator
func (a *WebScrapeAdapter) initAllocator() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
	)
	if a.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}

	if a.config.RemoteURL != "" {
		a.allocCtx, a.allocCancel = chromedp.NewRemoteAllocator(context.Background(), a.config.RemoteURL)
	} else {
		a.allocCtx, a.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
}

// Close releases the browser allocator
func (a *WebScrapeAdapter) Close() error {
	if a.allocCancel != nil {
		a.allocCancel()
	}
	return nil
}

// Kind returns the integration kind this adapter handles
func (a *WebScrapeAdapter) Kind() supplier.IntegrationKind {
	return supplier.KindWebScrape
}

// Capabilities returns the operations this adapter supports
func (a *WebScrapeAdapter) Capabilities() integration.CapabilitySet {
	return integration.NewCapabilitySet(
		integration.CapabilityCatalogFetch,
		integration.CapabilityOrderSubmit,
	)
}

// TestConnection logs into the portal and confirms the landing page renders
func (a *WebScrapeAdapter) TestConnection(ctx context.Context, conn *integration.ConnectionContext) error {
	if err := conn.Validate(); err != nil {
		return err
	}

	runCtx, cancel := a.browserContext(ctx)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(conn.Credentials.Get("portal_url")),
		a.loginIfPrompted(conn.Credentials),
		chromedp.WaitVisible(selPortalNav, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrConnectionFailed, err)
	}
	return nil
}

// FetchCatalog scrapes the portal's product table
func (a *WebScrapeAdapter) FetchCatalog(ctx context.Context, conn *integration.ConnectionContext) ([]integration.Product, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}

	runCtx, cancel := a.browserContext(ctx)
	defer cancel()

	portalURL := strings.TrimRight(conn.Credentials.Get("portal_url"), "/")

	var raw string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(portalURL),
		a.loginIfPrompted(conn.Credentials),
		chromedp.Navigate(portalURL+scrapeCatalogPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(catalogExtractJS, &raw),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: portal navigation timed out", integration.ErrFetchFailed)
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrFetchFailed, err)
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: catalog table missing from portal page", integration.ErrSchemaChanged)
	}

	products, err := parseScrapedCatalog([]byte(raw))
	if err != nil {
		return nil, err
	}

	a.logger.Debug("scraped portal catalog",
		zap.String("supplier_id", conn.Definition.ID),
		zap.Int("products", len(products)))

	return products, nil
}

// SubmitOrder places an order through the portal's quick order form
func (a *WebScrapeAdapter) SubmitOrder(ctx context.Context, conn *integration.ConnectionContext, req *order.Request) (*integration.OrderAck, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}

	runCtx, cancel := a.browserContext(ctx)
	defer cancel()

	portalURL := strings.TrimRight(conn.Credentials.Get("portal_url"), "/")

	// Everything up to filling the form is retry safe; nothing has been
	// submitted yet.
	err := chromedp.Run(runCtx,
		chromedp.Navigate(portalURL),
		a.loginIfPrompted(conn.Credentials),
		chromedp.Navigate(portalURL+scrapeOrderPath),
		chromedp.WaitVisible(selOrderForm, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrOrderUnreachable, err)
	}

	actions := []chromedp.Action{
		chromedp.SendKeys(selOrderLines, orderLinesText(req), chromedp.ByQuery),
	}
	if req.Notes != "" {
		actions = append(actions, chromedp.SendKeys(selOrderNotes, req.Notes, chromedp.ByQuery))
	}
	var raw string
	actions = append(actions,
		chromedp.Click(selOrderSubmit, chromedp.ByQuery),
		chromedp.WaitVisible(`#order-confirmation, #order-error`, chromedp.ByQuery),
		chromedp.Evaluate(orderResultJS, &raw),
	)

	// Past the click the order may exist on the supplier's side, so any
	// failure from here is terminal; a blind retry could double order.
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, fmt.Errorf("%w: confirmation not observed: %v", integration.ErrOrderRejected, err)
	}

	var result struct {
		Reference string `json:"reference"`
		Message   string `json:"message"`
		Error     string `json:"error"`
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: portal returned no recognizable outcome", integration.ErrOrderRejected)
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: unreadable portal outcome: %v", integration.ErrOrderRejected, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", integration.ErrOrderRejected, result.Error)
	}
	if strings.TrimSpace(result.Reference) == "" {
		return nil, fmt.Errorf("%w: confirmation carries no reference", integration.ErrOrderRejected)
	}

	return &integration.OrderAck{
		ExternalRef: result.Reference,
		AcceptedAt:  time.Now(),
		Message:     normalizeScrapedText(result.Message),
	}, nil
}

// CheckOrderStatus is unsupported; portal order states advance on manual
// evidence instead
func (a *WebScrapeAdapter) CheckOrderStatus(ctx context.Context, conn *integration.ConnectionContext, externalRef string) (*integration.StatusReport, error) {
	return nil, fmt.Errorf("%w: web_scrape has no status feed", integration.ErrCapabilityNotSupported)
}

// DeliverDocument is unsupported; portal suppliers take orders through the form
func (a *WebScrapeAdapter) DeliverDocument(ctx context.Context, conn *integration.ConnectionContext, req *order.Request, doc *integration.Document) error {
	return fmt.Errorf("%w: web_scrape has no document channel", integration.ErrCapabilityNotSupported)
}

// browserContext builds a fresh tab bounded by the scrape timeout
func (a *WebScrapeAdapter) browserContext(ctx context.Context) (context.Context, context.CancelFunc) {
	browserCtx, browserCancel := chromedp.NewContext(a.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			a.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	timeout := a.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	runCtx, timeoutCancel := context.WithTimeout(browserCtx, timeout)
	return runCtx, func() {
		timeoutCancel()
		browserCancel()
	}
}

// loginIfPrompted signs in when the landing page offers a login form.
// A portal session may already exist in the tab; that is not an error.
func (a *WebScrapeAdapter) loginIfPrompted(creds vault.Credentials) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var hasLogin bool
		if err := chromedp.Evaluate(`document.querySelector('form#login') !== null`, &hasLogin).Do(ctx); err != nil {
			return err
		}
		if !hasLogin {
			return nil
		}

		steps := []chromedp.Action{
			chromedp.SendKeys(selLoginUser, creds.Get("username"), chromedp.ByQuery),
			chromedp.SendKeys(selLoginPassword, creds.Get("password"), chromedp.ByQuery),
			chromedp.Click(selLoginSubmit, chromedp.ByQuery),
			chromedp.WaitVisible(selPortalNav+", "+selLoginError, chromedp.ByQuery),
		}
		for _, step := range steps {
			if err := step.Do(ctx); err != nil {
				return err
			}
		}

		var rejected bool
		if err := chromedp.Evaluate(`document.querySelector('#login-error') !== null`, &rejected).Do(ctx); err != nil {
			return err
		}
		if rejected {
			return errors.New("portal rejected the configured credentials")
		}
		return nil
	})
}

// orderLinesText renders order items in the portal's quick order format,
// one "sku,quantity" pair per line.
func orderLinesText(req *order.Request) string {
	lines := make([]string, 0, len(req.Items))
	for i := range req.Items {
		item := &req.Items[i]
		lines = append(lines, item.ProductID+","+item.Quantity.String())
	}
	return strings.Join(lines, "\n")
}

// scrapedRow is one product row as the extraction script reports it.
// Pointer fields distinguish a missing cell from an empty one.
type scrapedRow struct {
	SKU          *string `json:"sku"`
	Name         *string `json:"name"`
	Price        *string `json:"price"`
	Unit         *string `json:"unit"`
	Category     *string `json:"category"`
	Availability *string `json:"availability"`
}

// parseScrapedCatalog converts extracted rows to domain products. Any row
// with a missing or unreadable required cell fails the whole fetch; the
// catalog cache must never absorb guessed values.
func parseScrapedCatalog(raw []byte) ([]integration.Product, error) {
	var rows []scrapedRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: unreadable extraction payload: %v", integration.ErrSchemaChanged, err)
	}

	products := make([]integration.Product, 0, len(rows))
	for i, row := range rows {
		sku := requiredCell(row.SKU)
		name := requiredCell(row.Name)
		priceText := requiredCell(row.Price)
		unit := requiredCell(row.Unit)
		availability := requiredCell(row.Availability)
		if sku == "" || name == "" || priceText == "" || unit == "" || availability == "" {
			return nil, fmt.Errorf("%w: row %d is missing required cells", integration.ErrSchemaChanged, i)
		}

		price, err := parseScrapedPrice(priceText)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d price %q: %v", integration.ErrSchemaChanged, i, priceText, err)
		}

		inStock, err := parseAvailability(availability)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d availability %q", integration.ErrSchemaChanged, i, availability)
		}

		var category string
		if row.Category != nil {
			category = normalizeCategory(*row.Category)
		}

		products = append(products, integration.Product{
			ProductID: sku,
			Name:      name,
			Price:     price,
			Unit:      strings.ToLower(unit),
			Category:  category,
			InStock:   inStock,
		})
	}
	return products, nil
}

// requiredCell normalizes a cell, mapping a missing node to the empty string
func requiredCell(cell *string) string {
	if cell == nil {
		return ""
	}
	return normalizeScrapedText(*cell)
}

// parseScrapedPrice reads a display price like "$12.50" or "1,280.00"
func parseScrapedPrice(text string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", "A$", "", ",", "", " ", "").Replace(text)
	return decimal.NewFromString(cleaned)
}

// parseAvailability maps portal stock labels to a boolean
func parseAvailability(text string) (bool, error) {
	switch strings.ToLower(text) {
	case "in stock", "available", "yes":
		return true, nil
	case "out of stock", "unavailable", "no", "backorder":
		return false, nil
	default:
		return false, errors.New("unrecognized availability label")
	}
}

var _ integration.ProviderAdapter = (*WebScrapeAdapter)(nil)
