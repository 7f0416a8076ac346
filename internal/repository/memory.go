package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	inErrors "github.com/rayhan-p/storefront/internal/errors"
)

// In-memory stores implementing the same contracts as the postgres ones.
// Service tests run against these instead of a database.

type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[uuid.UUID]Cart
	items map[uuid.UUID]map[uuid.UUID]CartItem

	products *MemoryProductStore
	seq      int64
}

func NewMemoryCartStore(products *MemoryProductStore) *MemoryCartStore {
	return &MemoryCartStore{
		carts:    map[uuid.UUID]Cart{},
		items:    map[uuid.UUID]map[uuid.UUID]CartItem{},
		products: products,
	}
}

func (s *MemoryCartStore) nextCreatedAt() time.Time {
	s.seq++
	return time.Unix(0, s.seq)
}

func (s *MemoryCartStore) CreateCart(
	_ context.Context,
	userID *uuid.UUID,
	guestToken *string,
) (Cart, error) {
	// Same exactly-one-owner rule the carts CHECK constraint enforces.
	if (userID == nil) == (guestToken == nil) {
		return Cart{}, inErrors.ErrIncorrectOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := Cart{
		ID:         uuid.New(),
		UserID:     userID,
		GuestToken: guestToken,
		CreatedAt:  s.nextCreatedAt(),
	}
	s.carts[cart.ID] = cart
	s.items[cart.ID] = map[uuid.UUID]CartItem{}
	return cart, nil
}

func (s *MemoryCartStore) FindCartById(_ context.Context, id uuid.UUID) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[id]
	if !ok {
		return Cart{}, inErrors.ErrCartNotFound
	}
	return cart, nil
}

func (s *MemoryCartStore) FindNewestCartByUser(
	_ context.Context,
	userID uuid.UUID,
) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := Cart{}
	ok := false
	for _, cart := range s.carts {
		if cart.UserID == nil || *cart.UserID != userID {
			continue
		}
		if !ok || cart.CreatedAt.After(found.CreatedAt) {
			found = cart
			ok = true
		}
	}
	if !ok {
		return Cart{}, inErrors.ErrCartNotFound
	}
	return found, nil
}

func (s *MemoryCartStore) FindCartByGuestToken(
	_ context.Context,
	guestToken string,
) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := Cart{}
	ok := false
	for _, cart := range s.carts {
		if cart.GuestToken == nil || *cart.GuestToken != guestToken {
			continue
		}
		if !ok || cart.CreatedAt.After(found.CreatedAt) {
			found = cart
			ok = true
		}
	}
	if !ok {
		return Cart{}, inErrors.ErrCartNotFound
	}
	return found, nil
}

func (s *MemoryCartStore) FindCartItems(
	_ context.Context,
	cartID uuid.UUID,
) ([]CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []CartItem{}
	for _, item := range s.items[cartID] {
		items = append(items, s.withProduct(item))
	}
	return items, nil
}

func (s *MemoryCartStore) withProduct(item CartItem) CartItem {
	if s.products == nil {
		return item
	}
	product, err := s.products.FindProductById(context.Background(), item.ProductID)
	if err != nil {
		return item
	}
	item.ProductName = product.Name
	item.Price = product.Price
	return item
}

func (s *MemoryCartStore) AdoptGuestCart(
	c context.Context,
	guestToken string,
	userID uuid.UUID,
) (Cart, error) {
	cart, err := s.FindCartByGuestToken(c, guestToken)
	if err != nil {
		return Cart{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cart.UserID = &userID
	cart.GuestToken = nil
	s.carts[cart.ID] = cart
	return cart, nil
}

func (s *MemoryCartStore) AddItem(
	_ context.Context,
	cartID, productID uuid.UUID,
) (CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[cartID]; !ok {
		return CartItem{}, inErrors.ErrCartNotFound
	}
	item, ok := s.items[cartID][productID]
	if !ok {
		item = CartItem{ID: uuid.New(), CartID: cartID, ProductID: productID}
	}
	item.Quantity++
	s.items[cartID][productID] = item
	return s.withProduct(item), nil
}

func (s *MemoryCartStore) SetItemQuantity(
	_ context.Context,
	cartID, productID uuid.UUID,
	quantity int32,
) (CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[cartID][productID]
	if !ok {
		return CartItem{}, inErrors.ErrCartItemNotFound
	}
	item.Quantity = quantity
	s.items[cartID][productID] = item
	return s.withProduct(item), nil
}

func (s *MemoryCartStore) RemoveItem(
	_ context.Context,
	cartID, productID uuid.UUID,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[cartID][productID]; !ok {
		return inErrors.ErrCartItemNotFound
	}
	delete(s.items[cartID], productID)
	return nil
}

func (s *MemoryCartStore) ClearCart(_ context.Context, cartID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[cartID] = map[uuid.UUID]CartItem{}
	return nil
}

func (s *MemoryCartStore) MergeCarts(
	_ context.Context,
	fromCartID, intoCartID uuid.UUID,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[fromCartID]; !ok {
		return inErrors.ErrCartNotFound
	}
	if _, ok := s.carts[intoCartID]; !ok {
		return inErrors.ErrCartNotFound
	}
	for productID, fromItem := range s.items[fromCartID] {
		intoItem, ok := s.items[intoCartID][productID]
		if !ok {
			intoItem = CartItem{ID: uuid.New(), CartID: intoCartID, ProductID: productID}
		}
		intoItem.Quantity += fromItem.Quantity
		s.items[intoCartID][productID] = intoItem
	}
	delete(s.items, fromCartID)
	delete(s.carts, fromCartID)
	return nil
}

func (s *MemoryCartStore) DeleteCart(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	delete(s.carts, id)
	return nil
}

type MemoryOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]Order
	items  map[uuid.UUID][]OrderItem
	seq    int64
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{
		orders: map[uuid.UUID]Order{},
		items:  map[uuid.UUID][]OrderItem{},
	}
}

func (s *MemoryOrderStore) nextCreatedAt() time.Time {
	s.seq++
	return time.Unix(0, s.seq)
}

func snapshotItems(orderID uuid.UUID, params []OrderItemParams) ([]OrderItem, decimal.Decimal) {
	items := []OrderItem{}
	total := decimal.Zero
	for _, param := range params {
		lineTotal := param.UnitPrice.Mul(decimal.NewFromInt32(param.Quantity))
		items = append(items, OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   param.ProductID,
			ProductName: param.ProductName,
			Quantity:    param.Quantity,
			UnitPrice:   param.UnitPrice,
			TotalPrice:  lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return items, total
}

func (s *MemoryOrderStore) CreateOrder(
	_ context.Context,
	param CreateOrderParams,
) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orderID := uuid.New()
	items, total := snapshotItems(orderID, param.Items)
	order := Order{
		ID:         orderID,
		CustomerID: param.CustomerID,
		Status:     OrderStatusPending,
		TotalPrice: total,
		CreatedAt:  s.nextCreatedAt(),
	}
	s.orders[orderID] = order
	s.items[orderID] = items
	return order, nil
}

func (s *MemoryOrderStore) ReplaceOrderItems(
	_ context.Context,
	orderID uuid.UUID,
	params []OrderItemParams,
) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return Order{}, inErrors.ErrOrderNotFound
	}
	items, total := snapshotItems(orderID, params)
	order.TotalPrice = total
	s.orders[orderID] = order
	s.items[orderID] = items
	return order, nil
}

func (s *MemoryOrderStore) FindPendingOrderByCustomer(
	_ context.Context,
	customerID uuid.UUID,
) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := Order{}
	ok := false
	for _, order := range s.orders {
		if order.CustomerID != customerID || order.Status != OrderStatusPending {
			continue
		}
		if !ok || order.CreatedAt.After(found.CreatedAt) {
			found = order
			ok = true
		}
	}
	if !ok {
		return Order{}, inErrors.ErrOrderNotFound
	}
	return found, nil
}

func (s *MemoryOrderStore) FindOrdersByCustomer(
	_ context.Context,
	customerID uuid.UUID,
) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := []Order{}
	for _, order := range s.orders {
		if order.CustomerID == customerID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *MemoryOrderStore) FindOrderById(_ context.Context, id uuid.UUID) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return Order{}, inErrors.ErrOrderNotFound
	}
	return order, nil
}

func (s *MemoryOrderStore) FindOrderItems(
	_ context.Context,
	orderID uuid.UUID,
) ([]OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OrderItem{}, s.items[orderID]...), nil
}

func (s *MemoryOrderStore) UpdateOrderStatus(
	_ context.Context,
	orderID uuid.UUID,
	status OrderStatus,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return inErrors.ErrOrderNotFound
	}
	order.Status = status
	s.orders[orderID] = order
	return nil
}

func (s *MemoryOrderStore) DeleteOrder(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
	delete(s.items, id)
	return nil
}

// Orders reports how many orders the store holds for the customer.
func (s *MemoryOrderStore) Orders(customerID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, order := range s.orders {
		if order.CustomerID == customerID {
			count++
		}
	}
	return count
}

type MemoryUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: map[uuid.UUID]User{}}
}

func (s *MemoryUserStore) InsertUser(_ context.Context, param InsertUserParams) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == param.Email {
			return User{}, inErrors.ErrEmailTaken
		}
	}
	user := User{
		ID:        uuid.New(),
		Username:  param.Username,
		Email:     param.Email,
		Password:  param.Password,
		CreatedAt: time.Now(),
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *MemoryUserStore) FindUserByEmail(_ context.Context, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, inErrors.ErrUserNotFound
}

func (s *MemoryUserStore) FindUserById(_ context.Context, id uuid.UUID) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return User{}, inErrors.ErrUserNotFound
	}
	return user, nil
}

type MemoryProductStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]Product
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{products: map[uuid.UUID]Product{}}
}

func (s *MemoryProductStore) Put(product Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = product
}

func (s *MemoryProductStore) FindProductById(
	_ context.Context,
	id uuid.UUID,
) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[id]
	if !ok {
		return Product{}, inErrors.ErrProductNotFound
	}
	return product, nil
}
