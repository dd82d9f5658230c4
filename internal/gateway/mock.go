package gateway

import (
	"context"

	"storefront/internal/model"
)

// Mock implements Gateway for testing.
// Each method can be configured via function fields; unset methods return a
// neutral default or a not-found error as appropriate.
type Mock struct {
	VerifyUserFunc         func(ctx context.Context) (*model.Session, error)
	SyncProfileFunc        func(ctx context.Context, req *ProfileSyncRequest) error
	RegisterFunc           func(ctx context.Context, req *RegisterRequest) error
	BannersFunc            func(ctx context.Context) ([]model.Banner, error)
	CategoriesFunc         func(ctx context.Context) ([]model.Category, error)
	CreateCategoryFunc     func(ctx context.Context, cat *model.Category) (*model.Category, error)
	ProductsFunc           func(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)
	ProductFunc            func(ctx context.Context, slug string) (*model.Product, error)
	CreateProductFunc      func(ctx context.Context, p *model.Product) (*model.Product, error)
	GetCartFunc            func(ctx context.Context) (*model.Cart, error)
	AddCartItemFunc        func(ctx context.Context, variantID int64, quantity int) error
	UpdateCartItemFunc     func(ctx context.Context, cartItemID int64, quantity int) error
	RemoveCartItemFunc     func(ctx context.Context, cartItemID int64) error
	ClearCartFunc          func(ctx context.Context) error
	CreateOrderFunc        func(ctx context.Context, req *OrderRequest) (*model.Order, error)
	OrdersFunc             func(ctx context.Context) ([]model.Order, error)
	OrderFunc              func(ctx context.Context, id int64) (*model.Order, error)
	CreateCouponFunc       func(ctx context.Context, c *model.Coupon) (*model.Coupon, error)
	ValidateCouponFunc     func(ctx context.Context, code string, cartTotal int64) (*model.CouponResult, error)
	CreatePaymentOrderFunc func(ctx context.Context, req *PaymentOrderRequest) (*model.PendingPaymentOrder, error)
	VerifyPaymentFunc      func(ctx context.Context, req *PaymentVerification) error
	WishlistFunc           func(ctx context.Context) ([]model.WishlistItem, error)
	AddWishlistItemFunc    func(ctx context.Context, productID int64) error
	RemoveWishlistItemFunc func(ctx context.Context, productID int64) error
	CreateReviewFunc       func(ctx context.Context, r *model.Review) (*model.Review, error)
	ProductReviewsFunc     func(ctx context.Context, productID int64) ([]model.Review, error)
}

var _ Gateway = (*Mock)(nil)

func (m *Mock) VerifyUser(ctx context.Context) (*model.Session, error) {
	if m.VerifyUserFunc != nil {
		return m.VerifyUserFunc(ctx)
	}
	return &model.Session{UserID: "mock-user"}, nil
}

func (m *Mock) SyncProfile(ctx context.Context, req *ProfileSyncRequest) error {
	if m.SyncProfileFunc != nil {
		return m.SyncProfileFunc(ctx, req)
	}
	return nil
}

func (m *Mock) Register(ctx context.Context, req *RegisterRequest) error {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, req)
	}
	return nil
}

func (m *Mock) Banners(ctx context.Context) ([]model.Banner, error) {
	if m.BannersFunc != nil {
		return m.BannersFunc(ctx)
	}
	return []model.Banner{}, nil
}

func (m *Mock) Categories(ctx context.Context) ([]model.Category, error) {
	if m.CategoriesFunc != nil {
		return m.CategoriesFunc(ctx)
	}
	return []model.Category{}, nil
}

func (m *Mock) CreateCategory(ctx context.Context, cat *model.Category) (*model.Category, error) {
	if m.CreateCategoryFunc != nil {
		return m.CreateCategoryFunc(ctx, cat)
	}
	return cat, nil
}

func (m *Mock) Products(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	if m.ProductsFunc != nil {
		return m.ProductsFunc(ctx, filter)
	}
	return []model.Product{}, nil
}

func (m *Mock) Product(ctx context.Context, slug string) (*model.Product, error) {
	if m.ProductFunc != nil {
		return m.ProductFunc(ctx, slug)
	}
	return nil, model.NewBackendError(404, "product not found")
}

func (m *Mock) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	if m.CreateProductFunc != nil {
		return m.CreateProductFunc(ctx, p)
	}
	return p, nil
}

func (m *Mock) GetCart(ctx context.Context) (*model.Cart, error) {
	if m.GetCartFunc != nil {
		return m.GetCartFunc(ctx)
	}
	return &model.Cart{Items: []model.CartItem{}}, nil
}

func (m *Mock) AddCartItem(ctx context.Context, variantID int64, quantity int) error {
	if m.AddCartItemFunc != nil {
		return m.AddCartItemFunc(ctx, variantID, quantity)
	}
	return nil
}

func (m *Mock) UpdateCartItem(ctx context.Context, cartItemID int64, quantity int) error {
	if m.UpdateCartItemFunc != nil {
		return m.UpdateCartItemFunc(ctx, cartItemID, quantity)
	}
	return nil
}

func (m *Mock) RemoveCartItem(ctx context.Context, cartItemID int64) error {
	if m.RemoveCartItemFunc != nil {
		return m.RemoveCartItemFunc(ctx, cartItemID)
	}
	return nil
}

func (m *Mock) ClearCart(ctx context.Context) error {
	if m.ClearCartFunc != nil {
		return m.ClearCartFunc(ctx)
	}
	return nil
}

func (m *Mock) CreateOrder(ctx context.Context, req *OrderRequest) (*model.Order, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return &model.Order{ID: 1, Status: model.OrderPlaced}, nil
}

func (m *Mock) Orders(ctx context.Context) ([]model.Order, error) {
	if m.OrdersFunc != nil {
		return m.OrdersFunc(ctx)
	}
	return []model.Order{}, nil
}

func (m *Mock) Order(ctx context.Context, id int64) (*model.Order, error) {
	if m.OrderFunc != nil {
		return m.OrderFunc(ctx, id)
	}
	return nil, model.NewBackendError(404, "order not found")
}

func (m *Mock) CreateCoupon(ctx context.Context, c *model.Coupon) (*model.Coupon, error) {
	if m.CreateCouponFunc != nil {
		return m.CreateCouponFunc(ctx, c)
	}
	return c, nil
}

func (m *Mock) ValidateCoupon(ctx context.Context, code string, cartTotal int64) (*model.CouponResult, error) {
	if m.ValidateCouponFunc != nil {
		return m.ValidateCouponFunc(ctx, code, cartTotal)
	}
	return &model.CouponResult{Valid: false, Message: "unknown code"}, nil
}

func (m *Mock) CreatePaymentOrder(ctx context.Context, req *PaymentOrderRequest) (*model.PendingPaymentOrder, error) {
	if m.CreatePaymentOrderFunc != nil {
		return m.CreatePaymentOrderFunc(ctx, req)
	}
	return &model.PendingPaymentOrder{
		GatewayOrderID: "order_mock",
		DBOrderID:      1,
		Amount:         req.Amount,
		Currency:       req.Currency,
	}, nil
}

func (m *Mock) VerifyPayment(ctx context.Context, req *PaymentVerification) error {
	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, req)
	}
	return nil
}

func (m *Mock) Wishlist(ctx context.Context) ([]model.WishlistItem, error) {
	if m.WishlistFunc != nil {
		return m.WishlistFunc(ctx)
	}
	return []model.WishlistItem{}, nil
}

func (m *Mock) AddWishlistItem(ctx context.Context, productID int64) error {
	if m.AddWishlistItemFunc != nil {
		return m.AddWishlistItemFunc(ctx, productID)
	}
	return nil
}

func (m *Mock) RemoveWishlistItem(ctx context.Context, productID int64) error {
	if m.RemoveWishlistItemFunc != nil {
		return m.RemoveWishlistItemFunc(ctx, productID)
	}
	return nil
}

func (m *Mock) CreateReview(ctx context.Context, r *model.Review) (*model.Review, error) {
	if m.CreateReviewFunc != nil {
		return m.CreateReviewFunc(ctx, r)
	}
	return r, nil
}

func (m *Mock) ProductReviews(ctx context.Context, productID int64) ([]model.Review, error) {
	if m.ProductReviewsFunc != nil {
		return m.ProductReviewsFunc(ctx, productID)
	}
	return []model.Review{}, nil
}
