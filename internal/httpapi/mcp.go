// MCP transport for the storefront, using the official MCP Go SDK. Exposes
// the same catalog, cart, and checkout operations as the REST routes so an
// agent can drive a purchase end to end.
package httpapi

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront/internal/checkout"
	"storefront/internal/model"
)

// === Tool input/output types ===

type listProductsInput struct {
	Category string `json:"category,omitempty" jsonschema:"filter by category slug"`
	Featured bool   `json:"featured,omitempty" jsonschema:"only featured products"`
	OnSale   bool   `json:"on_sale,omitempty" jsonschema:"only discounted products"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of products"`
}

type listProductsOutput struct {
	Products []model.Product `json:"products"`
}

type getProductInput struct {
	Slug string `json:"slug" jsonschema:"product slug,required"`
}

type emptyInput struct{}

type addToCartInput struct {
	VariantID int64 `json:"variant_id" jsonschema:"product variant to add,required"`
	Quantity  int   `json:"quantity" jsonschema:"units to add, must be positive,required"`
}

type updateCartItemInput struct {
	CartItemID int64 `json:"cart_item_id" jsonschema:"cart line to update,required"`
	Quantity   int   `json:"quantity" jsonschema:"new quantity, must be at least 1,required"`
}

type removeCartItemInput struct {
	CartItemID int64 `json:"cart_item_id" jsonschema:"cart line to remove,required"`
}

type placeCODOrderInput struct {
	ShippingAddress model.Address `json:"shipping_address" jsonschema:"validated shipping address,required"`
	CouponCode      string        `json:"coupon_code,omitempty" jsonschema:"optional coupon code"`
}

type placeCODOrderOutput struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

type listOrdersOutput struct {
	Orders []model.Order `json:"orders"`
}

// NewMCPServer builds the MCP server with storefront tools registered.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Storefront commerce operations. Browse the catalog, " +
				"manage the cart, and place cash-on-delivery orders. Online payment " +
				"requires the interactive widget and is not available over MCP.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_products",
		Description: "List catalog products, optionally filtered by category, featured, or on-sale.",
	}, h.mcpListProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_product",
		Description: "Fetch one product by slug, including its variants.",
	}, h.mcpGetProduct)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Fetch the current cart, refreshed from the backend.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add a product variant to the cart. Requires a signed-in session.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_cart_item",
		Description: "Change the quantity of a cart line. Quantity zero is rejected; use remove_cart_item instead.",
	}, h.mcpUpdateCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_cart_item",
		Description: "Remove a cart line.",
	}, h.mcpRemoveCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "place_cod_order",
		Description: "Place a cash-on-delivery order for the current cart with the given shipping address.",
	}, h.mcpPlaceCODOrder)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_orders",
		Description: "List the signed-in user's orders.",
	}, h.mcpListOrders)

	return server
}

// NewMCPHandler returns the HTTP handler for the /mcp endpoint.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool handlers ===

func (h *Handler) mcpListProducts(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input listProductsInput,
) (*mcp.CallToolResult, *listProductsOutput, error) {
	products, err := h.opts.Gateway.Products(ctx, model.ProductFilter{
		Category: input.Category,
		Featured: input.Featured,
		OnSale:   input.OnSale,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, &listProductsOutput{Products: products}, nil
}

func (h *Handler) mcpGetProduct(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input getProductInput,
) (*mcp.CallToolResult, *model.Product, error) {
	if input.Slug == "" {
		return nil, nil, model.NewValidationError("slug", "must not be empty")
	}
	product, err := h.opts.Gateway.Product(ctx, input.Slug)
	if err != nil {
		return nil, nil, err
	}
	return nil, product, nil
}

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input emptyInput,
) (*mcp.CallToolResult, *cartResponse, error) {
	if err := h.opts.Cart.Refresh(ctx); err != nil {
		return nil, nil, err
	}
	resp := h.cartSnapshot()
	return nil, &resp, nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input addToCartInput,
) (*mcp.CallToolResult, *cartResponse, error) {
	if err := h.opts.Cart.Add(ctx, input.VariantID, input.Quantity); err != nil {
		return nil, nil, err
	}
	resp := h.cartSnapshot()
	return nil, &resp, nil
}

func (h *Handler) mcpUpdateCartItem(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input updateCartItemInput,
) (*mcp.CallToolResult, *cartResponse, error) {
	if err := h.opts.Cart.UpdateQuantity(ctx, input.CartItemID, input.Quantity); err != nil {
		return nil, nil, err
	}
	resp := h.cartSnapshot()
	return nil, &resp, nil
}

func (h *Handler) mcpRemoveCartItem(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input removeCartItemInput,
) (*mcp.CallToolResult, *cartResponse, error) {
	if err := h.opts.Cart.Remove(ctx, input.CartItemID); err != nil {
		return nil, nil, err
	}
	resp := h.cartSnapshot()
	return nil, &resp, nil
}

func (h *Handler) mcpPlaceCODOrder(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input placeCODOrderInput,
) (*mcp.CallToolResult, *placeCODOrderOutput, error) {
	attempt := h.newAttempt()
	orderID, err := attempt.Place(ctx, &checkout.Draft{
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   model.PaymentCOD,
		CouponCode:      input.CouponCode,
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, &placeCODOrderOutput{OrderID: orderID, Status: checkout.StatusPlaced.String()}, nil
}

func (h *Handler) mcpListOrders(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input emptyInput,
) (*mcp.CallToolResult, *listOrdersOutput, error) {
	orders, err := h.opts.Gateway.Orders(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, &listOrdersOutput{Orders: orders}, nil
}
