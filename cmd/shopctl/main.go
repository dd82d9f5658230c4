// shopctl is a CLI for driving a running storefrontd instance. Each command
// performs a single operation, making it composable for scripts.
//
// Commands:
//
//	shopctl products -server URL [-category SLUG] [-featured] [-limit N]
//	shopctl cart -server URL
//	shopctl add -server URL -variant ID [-qty N]
//	shopctl update -server URL -item ID -qty N
//	shopctl rm -server URL -item ID
//	shopctl clear -server URL
//	shopctl checkout -server URL -name NAME -phone PHONE -email EMAIL \
//	    -street STREET -city CITY -state STATE -pincode PIN [-online]
//	shopctl orders -server URL
//
// Examples:
//
//	shopctl add -server http://localhost:8080 -variant 7 -qty 2
//	shopctl checkout -server http://localhost:8080 -name "Asha Rao" \
//	    -phone 9876543210 -email asha@example.com -street "12 MG Road" \
//	    -city Bengaluru -state Karnataka -pincode 560001
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"storefront/internal/model"
)

var client = &http.Client{Timeout: 60 * time.Second}

// ANSI color codes, disabled via NO_COLOR.
var (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorBold  = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		colorReset, colorRed, colorGreen, colorCyan, colorBold = "", "", "", "", ""
	}
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "products":
		err = runProducts(args)
	case "cart":
		err = runCart(args)
	case "add":
		err = runAdd(args)
	case "update":
		err = runUpdate(args)
	case "rm":
		err = runRemove(args)
	case "clear":
		err = runClear(args)
	case "checkout":
		err = runCheckout(args)
	case "orders":
		err = runOrders(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", colorRed, colorReset, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `shopctl - storefront API driver

Usage:
  shopctl <command> [options]

Commands:
  products  List catalog products
  cart      Show the current cart
  add       Add a variant to the cart
  update    Change a cart line's quantity
  rm        Remove a cart line
  clear     Empty the cart
  checkout  Place an order (COD by default, -online for the payment widget)
  orders    List the user's orders

All commands take -server URL (default http://localhost:8080).
`)
}

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}

func serverFlag(fs *flag.FlagSet) *string {
	return fs.String("server", "http://localhost:8080", "storefrontd base URL")
}

// === HTTP plumbing ===

func get(server, path string, out any) error {
	resp, err := client.Get(server + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func send(method, server, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, server+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Storefront-Client", `app="cli";version="1.0"`)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

func decodeResponse(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var e apiError
		if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
			if e.Error.Field != "" {
				return fmt.Errorf("%s (%s): %s", e.Error.Code, e.Error.Field, e.Error.Message)
			}
			return fmt.Errorf("%s: %s", e.Error.Code, e.Error.Message)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// === Commands ===

func runProducts(args []string) error {
	fs := newFlags("products")
	server := serverFlag(fs)
	category := fs.String("category", "", "filter by category slug")
	featured := fs.Bool("featured", false, "only featured products")
	limit := fs.Int("limit", 0, "maximum number of products")
	fs.Parse(args)

	q := url.Values{}
	if *category != "" {
		q.Set("category", *category)
	}
	if *featured {
		q.Set("featured", "true")
	}
	if *limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", *limit))
	}
	path := "/api/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var products []struct {
		ID       int64  `json:"id"`
		Slug     string `json:"slug"`
		Name     string `json:"name"`
		Price    int64  `json:"price"`
		Variants []struct {
			ID    int64  `json:"id"`
			Size  string `json:"size"`
			Color string `json:"color"`
		} `json:"variants"`
	}
	if err := get(*server, path, &products); err != nil {
		return err
	}
	for _, p := range products {
		fmt.Printf("%s%s%s  %s  %s\n", colorBold, p.Slug, colorReset, p.Name, model.FormatMinor(p.Price))
		for _, v := range p.Variants {
			fmt.Printf("  variant %d  %s %s\n", v.ID, v.Size, v.Color)
		}
	}
	return nil
}

type cartView struct {
	State string `json:"state"`
	Count int    `json:"count"`
	Cart  *struct {
		Items []struct {
			CartItemID int64  `json:"id"`
			VariantID  int64  `json:"variant_id"`
			Name       string `json:"product_name"`
			UnitPrice  int64  `json:"unit_price"`
			Quantity   int    `json:"quantity"`
		} `json:"items"`
		Summary *struct {
			Subtotal int64 `json:"subtotal"`
		} `json:"summary"`
	} `json:"cart"`
	Changes []struct {
		Kind      string `json:"kind"`
		VariantID int64  `json:"variant_id"`
		Name      string `json:"name"`
		OldQty    int    `json:"old_quantity"`
		NewQty    int    `json:"new_quantity"`
		OldPrice  int64  `json:"old_unit_price"`
		NewPrice  int64  `json:"new_unit_price"`
	} `json:"changes"`
}

func printCart(view *cartView) {
	if view.Cart == nil || len(view.Cart.Items) == 0 {
		fmt.Println("cart is empty")
		return
	}
	for _, item := range view.Cart.Items {
		fmt.Printf("  line %d  variant %d  %s  %s x %d\n",
			item.CartItemID, item.VariantID, item.Name, model.FormatMinor(item.UnitPrice), item.Quantity)
	}
	if view.Cart.Summary != nil {
		fmt.Printf("%ssubtotal %s, %d items%s\n", colorBold, model.FormatMinor(view.Cart.Summary.Subtotal), view.Count, colorReset)
	} else {
		fmt.Printf("%d items\n", view.Count)
	}
	for _, c := range view.Changes {
		switch c.Kind {
		case "price_changed":
			fmt.Printf("%snotice:%s %s repriced %s -> %s\n", colorCyan, colorReset, c.Name, model.FormatMinor(c.OldPrice), model.FormatMinor(c.NewPrice))
		case "quantity_changed":
			fmt.Printf("%snotice:%s %s quantity adjusted %d -> %d\n", colorCyan, colorReset, c.Name, c.OldQty, c.NewQty)
		case "item_removed":
			fmt.Printf("%snotice:%s %s dropped by the store\n", colorCyan, colorReset, c.Name)
		}
	}
}

func runCart(args []string) error {
	fs := newFlags("cart")
	server := serverFlag(fs)
	fs.Parse(args)

	var view cartView
	if err := get(*server, "/api/cart", &view); err != nil {
		return err
	}
	printCart(&view)
	return nil
}

func runAdd(args []string) error {
	fs := newFlags("add")
	server := serverFlag(fs)
	variant := fs.Int64("variant", 0, "variant id to add")
	qty := fs.Int("qty", 1, "quantity")
	fs.Parse(args)
	if *variant == 0 {
		return fmt.Errorf("-variant is required")
	}

	var view cartView
	err := send("POST", *server, "/api/cart/items",
		map[string]any{"variant_id": *variant, "quantity": *qty}, &view)
	if err != nil {
		return err
	}
	printCart(&view)
	return nil
}

func runUpdate(args []string) error {
	fs := newFlags("update")
	server := serverFlag(fs)
	item := fs.Int64("item", 0, "cart line id")
	qty := fs.Int("qty", 0, "new quantity (at least 1)")
	fs.Parse(args)
	if *item == 0 {
		return fmt.Errorf("-item is required")
	}

	var view cartView
	err := send("PATCH", *server, fmt.Sprintf("/api/cart/items/%d", *item),
		map[string]any{"quantity": *qty}, &view)
	if err != nil {
		return err
	}
	printCart(&view)
	return nil
}

func runRemove(args []string) error {
	fs := newFlags("rm")
	server := serverFlag(fs)
	item := fs.Int64("item", 0, "cart line id")
	fs.Parse(args)
	if *item == 0 {
		return fmt.Errorf("-item is required")
	}

	var view cartView
	if err := send("DELETE", *server, fmt.Sprintf("/api/cart/items/%d", *item), nil, &view); err != nil {
		return err
	}
	printCart(&view)
	return nil
}

func runClear(args []string) error {
	fs := newFlags("clear")
	server := serverFlag(fs)
	fs.Parse(args)
	return send("DELETE", *server, "/api/cart", nil, nil)
}

func runCheckout(args []string) error {
	fs := newFlags("checkout")
	server := serverFlag(fs)
	name := fs.String("name", "", "full name")
	phone := fs.String("phone", "", "10-digit phone")
	email := fs.String("email", "", "email address")
	street := fs.String("street", "", "street")
	city := fs.String("city", "", "city")
	state := fs.String("state", "", "state")
	pincode := fs.String("pincode", "", "6-digit pincode")
	landmark := fs.String("landmark", "", "optional landmark")
	coupon := fs.String("coupon", "", "coupon code")
	online := fs.Bool("online", false, "pay via the hosted widget instead of COD")
	fs.Parse(args)

	method := "cod"
	if *online {
		method = "online"
	}
	body := map[string]any{
		"payment_method": method,
		"coupon_code":    *coupon,
		"shipping_address": map[string]string{
			"full_name": *name,
			"phone":     *phone,
			"email":     *email,
			"street":    *street,
			"city":      *city,
			"state":     *state,
			"pincode":   *pincode,
			"landmark":  *landmark,
		},
	}

	var resp struct {
		AttemptID   string `json:"attempt_id"`
		Status      string `json:"status"`
		OrderID     int64  `json:"order_id"`
		CheckoutURL string `json:"checkout_url"`
		Error       string `json:"error"`
		Terminal    bool   `json:"terminal"`
	}
	if err := send("POST", *server, "/api/checkout", body, &resp); err != nil {
		return err
	}

	if !*online {
		fmt.Printf("%sorder placed:%s %d\n", colorGreen, colorReset, resp.OrderID)
		return nil
	}

	// Online: poll the attempt, surface the checkout URL, wait for the
	// provider callback to resolve it.
	fmt.Printf("attempt %s started\n", resp.AttemptID)
	deadline := time.Now().Add(10 * time.Minute)
	shownURL := false
	for time.Now().Before(deadline) {
		if err := get(*server, "/api/checkout/"+resp.AttemptID, &resp); err != nil {
			return err
		}
		switch resp.Status {
		case "AWAITING_PAYMENT_WIDGET":
			if !shownURL && resp.CheckoutURL != "" {
				fmt.Printf("%spay here:%s %s\n", colorBold, colorReset, resp.CheckoutURL)
				shownURL = true
			}
		case "PLACED":
			fmt.Printf("%sorder placed:%s %d\n", colorGreen, colorReset, resp.OrderID)
			return nil
		case "FILLING":
			return fmt.Errorf("payment not completed: %s", resp.Error)
		case "FAILED":
			if resp.Terminal {
				return fmt.Errorf("checkout failed permanently: %s", resp.Error)
			}
			return fmt.Errorf("checkout failed: %s", resp.Error)
		}
		time.Sleep(2 * time.Second)
	}
	return fmt.Errorf("gave up waiting for payment")
}

func runOrders(args []string) error {
	fs := newFlags("orders")
	server := serverFlag(fs)
	fs.Parse(args)

	var orders []struct {
		ID            int64  `json:"id"`
		OrderNumber   string `json:"order_number"`
		Status        string `json:"status"`
		PaymentMethod string `json:"payment_method"`
		Totals        struct {
			Total int64 `json:"total"`
		} `json:"totals"`
	}
	if err := get(*server, "/api/orders", &orders); err != nil {
		return err
	}
	for _, o := range orders {
		fmt.Printf("%s#%d%s %s  %s  %s  %s\n",
			colorBold, o.ID, colorReset, o.OrderNumber, o.Status, o.PaymentMethod, model.FormatMinor(o.Totals.Total))
	}
	return nil
}
