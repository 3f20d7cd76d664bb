package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/queue"
	"github.com/ooovooo/backend/internal/repository"
	"github.com/ooovooo/backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const guestCustomerName = "Vendég"

var nonPriceChars = regexp.MustCompile(`[^0-9.]`)

type CheckoutConfig struct {
	Currency     string
	SuccessURL   string
	CancelURL    string
	ImageBaseURL string // skin images live at <base>/schemes/<style>.png
}

type OrderService struct {
	orders    repository.OrderStore
	trackers  repository.TrackerStore
	events    repository.EventStore
	gateway   PaymentGateway
	publisher queue.Publisher
	cfg       CheckoutConfig
	hub       Broadcaster
	log       *zap.Logger
}

func NewOrderService(orders repository.OrderStore, trackers repository.TrackerStore, events repository.EventStore,
	gateway PaymentGateway, publisher queue.Publisher, hub Broadcaster, cfg CheckoutConfig, log *zap.Logger) *OrderService {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	return &OrderService{
		orders:    orders,
		trackers:  trackers,
		events:    events,
		gateway:   gateway,
		publisher: publisher,
		cfg:       cfg,
		hub:       hub,
		log:       log,
	}
}

type CreateOrderInput struct {
	ProductType     string `json:"productType"`
	UniqueCode      string `json:"uniqueCode"`
	QRStyle         string `json:"qrStyle"`
	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	Size            string `json:"size"`
	TargetTrackerID string `json:"targetTrackerId"`
	TotalPrice      Price  `json:"totalPrice"`
}

// CreateOrder records a pending order without payment.
func (s *OrderService) CreateOrder(ctx context.Context, user *models.User, in CreateOrderInput) (*models.Order, error) {
	if strings.TrimSpace(in.ProductType) == "" || strings.TrimSpace(in.UniqueCode) == "" {
		return nil, invalid("productType and uniqueCode are required")
	}
	if strings.TrimSpace(in.CustomerName) == "" || strings.TrimSpace(in.CustomerEmail) == "" {
		return nil, invalid("customerName and customerEmail are required")
	}
	target, err := s.targetTracker(ctx, user, in.TargetTrackerID)
	if err != nil {
		return nil, err
	}

	o := newPendingOrder(user.ID, strings.TrimSpace(in.CustomerName), strings.TrimSpace(in.CustomerEmail),
		in.ProductType, in.Size, in.UniqueCode, in.QRStyle, float64(in.TotalPrice), target)
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// CartItem is one webshop line as sent by the cart view.
type CartItem struct {
	ProductID       string `json:"productId"`
	Name            string `json:"name"`
	Price           Price  `json:"price"`
	Size            string `json:"size"`
	UniqueCode      string `json:"uniqueCode"`
	QRStyle         string `json:"qrStyle"`
	TargetTrackerID string `json:"targetTrackerId"`
}

type CheckoutInput struct {
	Items         []CartItem `json:"items"`
	CustomerEmail string     `json:"customerEmail"`
}

// Checkout stores one pending order per cart item and opens a payment
// session whose metadata lists the order ids.
func (s *OrderService) Checkout(ctx context.Context, user *models.User, in CheckoutInput) (*CheckoutSession, error) {
	if len(in.Items) == 0 {
		return nil, invalid("cart is empty")
	}
	email := strings.TrimSpace(in.CustomerEmail)
	if email == "" {
		email = user.Email
	}
	name := strings.TrimSpace(user.Name)
	if name == "" {
		name = guestCustomerName
	}

	req := CheckoutRequest{
		CustomerEmail: email,
		Currency:      s.cfg.Currency,
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
	}
	ids := make([]primitive.ObjectID, 0, len(in.Items))
	hexIDs := make([]string, 0, len(in.Items))

	for _, item := range in.Items {
		if item.Price <= 0 {
			return nil, invalid("every item needs a positive price")
		}
		target, err := s.targetTracker(ctx, user, item.TargetTrackerID)
		if err != nil {
			return nil, err
		}
		code := strings.TrimSpace(item.UniqueCode)
		if code == "" {
			if code, err = utils.GenerateCode(); err != nil {
				return nil, fmt.Errorf("generate code: %w", err)
			}
		}

		o := newPendingOrder(user.ID, name, email, item.ProductID, item.Size, code, item.QRStyle, float64(item.Price), target)
		if err := s.orders.Create(ctx, o); err != nil {
			return nil, err
		}
		ids = append(ids, o.ID)
		hexIDs = append(hexIDs, o.ID.Hex())

		itemName := strings.TrimSpace(item.Name)
		if itemName == "" {
			itemName = o.ProductType
		}
		req.Lines = append(req.Lines, CheckoutLine{
			Name:        fmt.Sprintf("%s (%s)", itemName, o.UniqueCode),
			Description: "Size: " + o.Size,
			ImageURL:    fmt.Sprintf("%s/schemes/%s.png", s.cfg.ImageBaseURL, o.QRStyle),
			UnitAmount:  int64(math.Round(o.TotalPrice * 100)),
		})
	}

	orderIDs, err := json.Marshal(hexIDs)
	if err != nil {
		return nil, err
	}
	req.Metadata = map[string]string{"userId": user.ID.Hex(), "orderIds": string(orderIDs)}

	sess, err := s.gateway.CreateCheckout(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.orders.SetSession(ctx, ids, sess.ID); err != nil {
		s.log.Warn("storing checkout session id failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
	return sess, nil
}

// HandleWebhook applies a verified payment event. Replayed events and
// already-paid orders are skipped so a redelivery never grants a skin twice.
// The event id is recorded only after every order was applied, so a
// failure leaves it open for the provider's retry.
func (s *OrderService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if ev.Type != EventCheckoutCompleted {
		return nil
	}

	seen, err := s.events.Seen(ctx, ev.ID)
	if err != nil {
		return err
	}
	if seen {
		s.log.Info("payment event already processed", zap.String("event_id", ev.ID))
		return nil
	}

	for _, raw := range parseOrderIDs(ev.Metadata["orderIds"]) {
		oid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			s.log.Warn("webhook references malformed order id", zap.String("order_id", raw))
			continue
		}
		if err := s.settle(ctx, oid); err != nil {
			return fmt.Errorf("settle order %s: %w", raw, err)
		}
	}

	return s.events.Record(ctx, &models.ProcessedEvent{ID: ev.ID, Type: ev.Type, ProcessedAt: time.Now().UTC()})
}

func (s *OrderService) settle(ctx context.Context, id primitive.ObjectID) error {
	o, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("webhook references unknown order", zap.String("order_id", id.Hex()))
		return nil
	}
	if err != nil {
		return err
	}
	if o.PaymentStatus == models.PaymentStatusPaid {
		return nil
	}
	if err := s.grantSkin(ctx, o); err != nil {
		return err
	}
	paid, err := s.orders.MarkPaid(ctx, id)
	if err != nil {
		return err
	}
	if paid {
		o.PaymentStatus = models.PaymentStatusPaid
		o.Status = models.OrderStatusProcessing
		s.publish(ctx, queue.OrderEventPaid, o)
	}
	return nil
}

// UpdateStatus moves an order through pending, processing and shipped.
// Leaving pending grants the ordered skin.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	oid, err := parseObjectID(orderID, "order")
	if err != nil {
		return nil, err
	}
	if !models.ValidOrderStatus(status) {
		return nil, invalid("invalid order status")
	}
	o, err := s.orders.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	if o.Status == models.OrderStatusPending && status != models.OrderStatusPending {
		if err := s.grantSkin(ctx, o); err != nil {
			return nil, err
		}
	}
	if err := s.orders.UpdateStatus(ctx, oid, status); err != nil {
		return nil, err
	}
	changed := o.Status != status
	o.Status = status
	if changed {
		s.publish(ctx, queue.OrderEventStatusChanged, o)
	}
	return o, nil
}

func (s *OrderService) ListAll(ctx context.Context, status string) ([]models.Order, error) {
	if status != "" && !models.ValidOrderStatus(status) {
		return nil, invalid("invalid order status")
	}
	return s.orders.List(ctx, repository.OrderQuery{Status: status})
}

func (s *OrderService) ListMine(ctx context.Context, user *models.User) ([]models.Order, error) {
	return s.orders.List(ctx, repository.OrderQuery{UserID: &user.ID})
}

// grantSkin pushes the order's style onto its target tracker. Orders for a
// new device have no target and nothing to grant.
func (s *OrderService) grantSkin(ctx context.Context, o *models.Order) error {
	if o.TargetTrackerID == nil {
		return nil
	}
	granted, err := s.trackers.GrantSkin(ctx, *o.TargetTrackerID, models.Skin{StyleID: o.QRStyle, OrderID: o.ID.Hex()})
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("order targets a deleted tracker", zap.String("order_id", o.ID.Hex()))
		return nil
	}
	if err != nil {
		return err
	}
	if !granted {
		return nil
	}
	s.log.Info("skin granted", zap.String("order_id", o.ID.Hex()), zap.String("qr_style", o.QRStyle),
		zap.String("tracker_id", o.TargetTrackerID.Hex()))

	if s.hub != nil {
		if t, err := s.trackers.FindByID(ctx, *o.TargetTrackerID); err == nil {
			if err := s.hub.EmitToRoom(ctx, UserRoom(t.Owner.Hex()), EventTrackerUpdated, t); err != nil {
				s.log.Warn("tracker broadcast failed", zap.Error(err))
			}
		}
	}
	return nil
}

func (s *OrderService) publish(ctx context.Context, kind string, o *models.Order) {
	ev := queue.OrderEvent{
		Type:          kind,
		OrderID:       o.ID.Hex(),
		UserID:        o.UserID.Hex(),
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		ProductType:   o.ProductType,
		Size:          o.Size,
		UniqueCode:    o.UniqueCode,
		QRStyle:       o.QRStyle,
		OccurredAt:    time.Now().UTC(),
	}
	if o.TargetTrackerID != nil {
		ev.TargetTrackerID = o.TargetTrackerID.Hex()
	}
	if err := s.publisher.PublishOrderEvent(ctx, ev); err != nil {
		s.log.Warn("order event publish failed", zap.String("order_id", ev.OrderID), zap.Error(err))
	}
}

func (s *OrderService) targetTracker(ctx context.Context, user *models.User, ref string) (*primitive.ObjectID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "null" {
		return nil, nil
	}
	oid, err := parseObjectID(ref, "target tracker")
	if err != nil {
		return nil, err
	}
	t, err := s.trackers.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if t.Owner != user.ID {
		return nil, ErrForbidden
	}
	return &oid, nil
}

func newPendingOrder(userID primitive.ObjectID, name, email, productType, size, code, style string, price float64, target *primitive.ObjectID) *models.Order {
	size = strings.TrimSpace(size)
	if size == "" {
		size = models.DefaultOrderSize
	}
	style = strings.TrimSpace(style)
	if style == "" {
		style = models.DefaultOrderQRStyle
	}
	return &models.Order{
		UserID:          userID,
		CustomerName:    name,
		CustomerEmail:   email,
		TargetTrackerID: target,
		ProductType:     strings.TrimSpace(productType),
		Size:            size,
		UniqueCode:      strings.TrimSpace(code),
		QRStyle:         style,
		TotalPrice:      price,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusUnpaid,
	}
}

func parseOrderIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}

// Price decodes a JSON number or a formatted price string such as
// "4 990 Ft" or "12.50 €".
type Price float64

func (p *Price) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*p = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		v, err := ParsePrice(str)
		if err != nil {
			return err
		}
		*p = Price(v)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid price %s", s)
	}
	*p = Price(v)
	return nil
}

// ParsePrice strips everything but digits and dots before parsing.
func ParsePrice(s string) (float64, error) {
	cleaned := nonPriceChars.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return v, nil
}
