package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"storefront/internal/model"
	"storefront/internal/transport"
)

// apiPath is the base path for all commerce backend endpoints.
const apiPath = "/api/v1"

// userAgent identifies this client to the backend. The CDN in front of the
// backend rate-limits requests without a User-Agent.
const userAgent = "storefront-client/1.0"

// defaultTimeout bounds every backend call. The backend's own timeout
// behavior is unknown from this side, so the client imposes its own and maps
// the exceeded deadline to the Timeout error kind.
const defaultTimeout = 30 * time.Second

// Options configures the HTTP gateway client.
type Options struct {
	// BaseURL is the backend root without the /api/v1 suffix.
	BaseURL string

	// Tokens supplies bearer tokens for authenticated endpoints. May be nil
	// for a catalog-only client; authed calls then fail with NotAuthenticated.
	Tokens TokenSource

	// MinAPIVersion is the lowest acceptable backend version (semver, "v"
	// prefixed). Empty disables the check.
	MinAPIVersion string

	// Transport overrides the HTTP transport. Defaults to
	// http.DefaultTransport; production wiring passes the browser-fingerprint
	// transport wrapped in the circuit breaker.
	Transport http.RoundTripper

	// Timeout overrides the per-request deadline. Zero means defaultTimeout.
	Timeout time.Duration

	Logger *slog.Logger
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	tokens      TokenSource
	minVersion  string
	logger      *slog.Logger
	versionWarn sync.Once
}

var _ Gateway = (*Client)(nil)

// New creates a gateway client with the given options.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	rt := opts.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: rt},
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		tokens:     opts.Tokens,
		minVersion: opts.MinAPIVersion,
		logger:     logger,
	}, nil
}

// === Identity ===

func (c *Client) VerifyUser(ctx context.Context) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, call{method: http.MethodGet, path: "/users/verify", auth: authRequired, out: &sess}); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *Client) SyncProfile(ctx context.Context, req *ProfileSyncRequest) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/auth/sync", body: req, auth: authRequired})
}

func (c *Client) Register(ctx context.Context, req *RegisterRequest) error {
	// Registration works with a bearer token (provider-backed signup) or
	// with raw credentials; send the token when a session exists.
	return c.do(ctx, call{method: http.MethodPost, path: "/auth/register", body: req, auth: authOptional})
}

// === Catalog ===

func (c *Client) Banners(ctx context.Context) ([]model.Banner, error) {
	var banners []model.Banner
	if err := c.do(ctx, call{method: http.MethodGet, path: "/banners/all", out: &banners}); err != nil {
		return nil, err
	}
	return banners, nil
}

func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if err := c.do(ctx, call{method: http.MethodGet, path: "/categories", out: &cats}); err != nil {
		return nil, err
	}
	return cats, nil
}

func (c *Client) CreateCategory(ctx context.Context, cat *model.Category) (*model.Category, error) {
	var created model.Category
	if err := c.do(ctx, call{method: http.MethodPost, path: "/categories", body: cat, auth: authRequired, out: &created}); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) Products(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.Featured {
		q.Set("featured", "true")
	}
	if filter.OnSale {
		q.Set("on_sale", "true")
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	path := "/products/all"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var products []model.Product
	if err := c.do(ctx, call{method: http.MethodGet, path: path, out: &products}); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) Product(ctx context.Context, slug string) (*model.Product, error) {
	var p model.Product
	if err := c.do(ctx, call{method: http.MethodGet, path: "/products/" + url.PathEscape(slug), out: &p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	var created model.Product
	if err := c.do(ctx, call{method: http.MethodPost, path: "/products/add", body: p, auth: authRequired, out: &created}); err != nil {
		return nil, err
	}
	return &created, nil
}

// === Cart ===

func (c *Client) GetCart(ctx context.Context) (*model.Cart, error) {
	var cart model.Cart
	if err := c.do(ctx, call{method: http.MethodGet, path: "/cart", auth: authRequired, out: &cart}); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) AddCartItem(ctx context.Context, variantID int64, quantity int) error {
	body := map[string]any{"variant_id": variantID, "quantity": quantity}
	return c.do(ctx, call{method: http.MethodPost, path: "/cart", body: body, auth: authRequired})
}

func (c *Client) UpdateCartItem(ctx context.Context, cartItemID int64, quantity int) error {
	body := map[string]any{"quantity": quantity}
	return c.do(ctx, call{method: http.MethodPatch, path: cartItemPath(cartItemID), body: body, auth: authRequired})
}

func (c *Client) RemoveCartItem(ctx context.Context, cartItemID int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: cartItemPath(cartItemID), auth: authRequired})
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodDelete, path: "/cart", auth: authRequired})
}

func cartItemPath(cartItemID int64) string {
	return "/cart/" + strconv.FormatInt(cartItemID, 10)
}

// === Orders ===

func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (*model.Order, error) {
	var order model.Order
	err := c.do(ctx, call{
		method: http.MethodPost, path: "/orders", body: req,
		auth: authRequired, out: &order, idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) Orders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := c.do(ctx, call{method: http.MethodGet, path: "/orders", auth: authRequired, out: &orders}); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) Order(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	path := "/orders/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, call{method: http.MethodGet, path: path, auth: authRequired, out: &order}); err != nil {
		return nil, err
	}
	return &order, nil
}

// === Coupons ===

func (c *Client) CreateCoupon(ctx context.Context, coupon *model.Coupon) (*model.Coupon, error) {
	var created model.Coupon
	if err := c.do(ctx, call{method: http.MethodPost, path: "/coupons", body: coupon, auth: authRequired, out: &created}); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) ValidateCoupon(ctx context.Context, code string, cartTotal int64) (*model.CouponResult, error) {
	body := map[string]any{"code": code, "cart_total": cartTotal}
	var result model.CouponResult
	if err := c.do(ctx, call{method: http.MethodPost, path: "/coupons/validate", body: body, out: &result}); err != nil {
		return nil, err
	}
	return &result, nil
}

// === Payments ===

func (c *Client) CreatePaymentOrder(ctx context.Context, req *PaymentOrderRequest) (*model.PendingPaymentOrder, error) {
	var pending model.PendingPaymentOrder
	err := c.do(ctx, call{
		method: http.MethodPost, path: "/payments/create-order", body: req,
		auth: authRequired, out: &pending, idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

func (c *Client) VerifyPayment(ctx context.Context, req *PaymentVerification) error {
	// No idempotency key here: verification is submitted exactly once per
	// attempt and never retried, per the checkout orchestrator's contract.
	return c.do(ctx, call{method: http.MethodPost, path: "/payments/verify", body: req, auth: authRequired})
}

// === Wishlist ===

func (c *Client) Wishlist(ctx context.Context) ([]model.WishlistItem, error) {
	var items []model.WishlistItem
	if err := c.do(ctx, call{method: http.MethodGet, path: "/wishlist", auth: authRequired, out: &items}); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) AddWishlistItem(ctx context.Context, productID int64) error {
	body := map[string]any{"product_id": productID}
	return c.do(ctx, call{method: http.MethodPost, path: "/wishlist", body: body, auth: authRequired})
}

func (c *Client) RemoveWishlistItem(ctx context.Context, productID int64) error {
	path := "/wishlist/" + strconv.FormatInt(productID, 10)
	return c.do(ctx, call{method: http.MethodDelete, path: path, auth: authRequired})
}

// === Reviews ===

func (c *Client) CreateReview(ctx context.Context, r *model.Review) (*model.Review, error) {
	var created model.Review
	if err := c.do(ctx, call{method: http.MethodPost, path: "/reviews", body: r, auth: authRequired, out: &created}); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) ProductReviews(ctx context.Context, productID int64) ([]model.Review, error) {
	var reviews []model.Review
	path := "/reviews/product/" + strconv.FormatInt(productID, 10)
	if err := c.do(ctx, call{method: http.MethodGet, path: path, out: &reviews}); err != nil {
		return nil, err
	}
	return reviews, nil
}

// === HTTP plumbing ===

// authMode selects bearer-token handling per endpoint.
type authMode int

const (
	authNone     authMode = iota // public endpoint, no Authorization header
	authRequired                 // fails with NotAuthenticated when no token
	authOptional                 // attaches a token when available, else omits
)

// call describes one backend request.
type call struct {
	method     string
	path       string // relative to /api/v1, may carry a query string
	body       any
	auth       authMode
	out        any  // decoded from the response body when non-nil
	idempotent bool // attach a fresh Idempotency-Key header
}

func (c *Client) do(ctx context.Context, cl call) error {
	var bodyReader io.Reader
	if cl.body != nil {
		jsonBody, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+apiPath+cl.path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.idempotent {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	if err := c.attachToken(ctx, req, cl.auth); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.mapTransportError(cl.method, cl.path, err)
	}
	defer resp.Body.Close()

	c.checkAPIVersion(resp)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, respBody)
	}

	if cl.out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, cl.out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

// attachToken fetches a fresh bearer token per call (never cached) and sets
// the Authorization header per the endpoint's auth mode.
func (c *Client) attachToken(ctx context.Context, req *http.Request, mode authMode) error {
	if mode == authNone {
		return nil
	}
	if c.tokens == nil {
		if mode == authOptional {
			return nil
		}
		return model.NewNotAuthenticatedError(req.Method + " " + req.URL.Path)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		if mode == authOptional && errors.Is(err, model.ErrNotAuthenticated) {
			return nil
		}
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// mapTransportError converts client-side failures to the error taxonomy.
func (c *Client) mapTransportError(method, path string, err error) error {
	if errors.Is(err, transport.ErrBreakerOpen) {
		return model.NewBackendError(http.StatusServiceUnavailable, "backend temporarily unavailable")
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return model.NewTimeoutError(method + " " + path)
	}
	return model.NewUpstreamError(err)
}

// parseErrorResponse converts a non-2xx backend response to a BackendError,
// preferring server-supplied text over the generic status-derived message.
func parseErrorResponse(statusCode int, body []byte) error {
	var backendErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	json.Unmarshal(body, &backendErr) // Best effort parse

	msg := backendErr.Message
	if msg == "" {
		msg = backendErr.Error
	}
	return model.NewBackendError(statusCode, msg)
}

// checkAPIVersion compares the backend's advertised version against the
// configured minimum and warns once per process when it is older.
func (c *Client) checkAPIVersion(resp *http.Response) {
	if c.minVersion == "" {
		return
	}
	v := resp.Header.Get("X-Api-Version")
	if v == "" {
		return
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return
	}
	if semver.Compare(v, c.minVersion) < 0 {
		c.versionWarn.Do(func() {
			c.logger.Warn("backend API version below supported minimum",
				slog.String("backend", v),
				slog.String("minimum", c.minVersion),
			)
		})
	}
}
