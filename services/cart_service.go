package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/yashrajoria/storefront/cart"
	"github.com/yashrajoria/storefront/logger"
	"github.com/yashrajoria/storefront/models"
	"github.com/yashrajoria/storefront/repository"
	"go.uber.org/zap"
)

// CartService keeps server-side cart sessions for clients that cannot hold
// the cart themselves. Every call returns the cart with fresh totals.
type CartService interface {
	GetCart(ctx context.Context, sessionID string) (*models.CartView, *ServiceError)
	AddItem(ctx context.Context, sessionID string, req *models.AddCartItemRequest) (*models.CartView, *ServiceError)
	UpdateItem(ctx context.Context, sessionID, itemID string, quantity int) (*models.CartView, *ServiceError)
	RemoveItem(ctx context.Context, sessionID, itemID string) (*models.CartView, *ServiceError)
	ClearCart(ctx context.Context, sessionID string) *ServiceError
}

type cartService struct {
	repo    repository.CartRepository
	pricing cart.PricingPolicy
	logger  *zap.Logger
}

func NewCartService(repo repository.CartRepository, pricing cart.PricingPolicy, logger *zap.Logger) CartService {
	return &cartService{repo: repo, pricing: pricing, logger: logger}
}

var errCartItemNotFound = &ServiceError{StatusCode: http.StatusNotFound, Message: "Cart item not found", Kind: KindNotFound}

// errNoCartItem aborts an update without writing.
var errNoCartItem = errors.New("cart item not found")

func errMissingSession() *ServiceError {
	return &ServiceError{StatusCode: http.StatusBadRequest, Message: "X-Cart-Session header is required", Kind: KindValidation}
}

func (s *cartService) load(ctx context.Context, sessionID string) (*cart.Cart, *ServiceError) {
	if sessionID == "" {
		return nil, errMissingSession()
	}
	stored, err := s.repo.GetCart(ctx, sessionID)
	if err != nil {
		logger.For(ctx, s.logger).Error("Failed to load cart", zap.String("session_id", sessionID), zap.Error(err))
		return nil, internalError("Failed to load cart")
	}
	if stored == nil {
		return cart.New(), nil
	}
	return cart.New(stored.Items...), nil
}

// mutate runs apply against the stored cart inside one atomic update.
// apply returns false when the target line does not exist.
func (s *cartService) mutate(ctx context.Context, sessionID string, apply func(c *cart.Cart) bool) (*models.CartView, *ServiceError) {
	if sessionID == "" {
		return nil, errMissingSession()
	}
	var c *cart.Cart
	_, err := s.repo.UpdateCart(ctx, sessionID, func(stored *models.CartSession) error {
		c = cart.New(stored.Items...)
		if !apply(c) {
			return errNoCartItem
		}
		stored.Items = c.Items()
		return nil
	})
	if errors.Is(err, errNoCartItem) {
		return nil, errCartItemNotFound
	}
	if err != nil {
		logger.For(ctx, s.logger).Error("Failed to save cart", zap.String("session_id", sessionID), zap.Error(err))
		return nil, internalError("Failed to save cart")
	}
	return s.view(sessionID, c), nil
}

func (s *cartService) view(sessionID string, c *cart.Cart) *models.CartView {
	items := c.Items()
	if items == nil {
		items = []models.LineItem{}
	}
	return &models.CartView{SessionID: sessionID, Items: items, Totals: c.ComputeTotals(s.pricing)}
}

func (s *cartService) GetCart(ctx context.Context, sessionID string) (*models.CartView, *ServiceError) {
	c, svcErr := s.load(ctx, sessionID)
	if svcErr != nil {
		return nil, svcErr
	}
	return s.view(sessionID, c), nil
}

func (s *cartService) AddItem(ctx context.Context, sessionID string, req *models.AddCartItemRequest) (*models.CartView, *ServiceError) {
	if msgs := ValidateCartItem(req); len(msgs) > 0 {
		return nil, validationError(msgs...)
	}
	return s.mutate(ctx, sessionID, func(c *cart.Cart) bool {
		c.AddItem(models.LineItem{
			Product:  req.Product,
			Quantity: req.Quantity,
			Size:     req.Size,
			Color:    req.Color,
		})
		return true
	})
}

// UpdateItem sets the quantity; zero or less removes the line.
func (s *cartService) UpdateItem(ctx context.Context, sessionID, itemID string, quantity int) (*models.CartView, *ServiceError) {
	return s.mutate(ctx, sessionID, func(c *cart.Cart) bool {
		return c.UpdateQuantity(itemID, quantity)
	})
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID, itemID string) (*models.CartView, *ServiceError) {
	return s.mutate(ctx, sessionID, func(c *cart.Cart) bool {
		return c.RemoveItem(itemID)
	})
}

func (s *cartService) ClearCart(ctx context.Context, sessionID string) *ServiceError {
	if sessionID == "" {
		return errMissingSession()
	}
	if err := s.repo.DeleteCart(ctx, sessionID); err != nil {
		logger.For(ctx, s.logger).Error("Failed to clear cart", zap.String("session_id", sessionID), zap.Error(err))
		return internalError("Failed to clear cart")
	}
	return nil
}
