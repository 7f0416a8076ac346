package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rayhan-p/storefront/internal/checkout/common/otel"
	"github.com/rayhan-p/storefront/internal/config"
	inErrors "github.com/rayhan-p/storefront/internal/errors"
	"github.com/rayhan-p/storefront/internal/log"
	"github.com/rayhan-p/storefront/internal/repository"
)

const signatureTolerance = 5 * time.Minute

// StripeGateway drives Stripe Checkout over its form-encoded REST api and
// verifies webhook signatures in Stripe's t=...,v1=... scheme.
type StripeGateway struct {
	cfg    config.Payment
	client *http.Client
	now    func() time.Time
}

func NewStripeGateway(cfg config.Payment) *StripeGateway {
	return &StripeGateway{
		cfg:    cfg,
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		now:    time.Now,
	}
}

func (g *StripeGateway) CreateCheckoutSession(
	c context.Context,
	order repository.Order,
	items []repository.OrderItem,
) (CheckoutSession, error) {
	c, span := otel.Tracer.Start(c, "StripeGateway CreateCheckoutSession")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "StripeGateway CreateCheckoutSession").
		Str(log.KeyOrderID, order.ID.String()).
		Logger()

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", g.cfg.WebsiteUrl+"/checkout/success")
	form.Set("cancel_url", g.cfg.WebsiteUrl+"/checkout/cancel")
	form.Set("client_reference_id", order.ID.String())
	form.Set("metadata[order_id]", order.ID.String())
	for i, item := range items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.FormatInt(int64(item.Quantity), 10))
		form.Set(prefix+"[price_data][currency]", "usd")
		form.Set(prefix+"[price_data][product_data][name]", item.ProductName)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(toCents(item.UnitPrice), 10))
	}

	timeout := time.Duration(g.cfg.Timeout) * time.Second
	c, cancel := context.WithTimeout(c, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		c,
		http.MethodPost,
		g.cfg.BaseUrl+"/v1/checkout/sessions",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		err = fmt.Errorf("failed creating checkout session request with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return CheckoutSession{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+g.cfg.ApiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		err = fmt.Errorf("failed creating checkout session with error=%w: %w", inErrors.ErrPayment, err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return CheckoutSession{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err = fmt.Errorf(
			"failed creating checkout session with error=%w: status=%d body=%s",
			inErrors.ErrPayment,
			resp.StatusCode,
			string(body),
		)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return CheckoutSession{}, err
	}

	session := struct {
		URL string `json:"url"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		err = fmt.Errorf("failed decoding checkout session with error=%w: %w", inErrors.ErrPayment, err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return CheckoutSession{}, err
	}
	logger.Info().Msg("created checkout session")
	return CheckoutSession{URL: session.URL}, nil
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			Metadata struct {
				OrderID string `json:"order_id"`
			} `json:"metadata"`
			ClientReferenceID string `json:"client_reference_id"`
		} `json:"object"`
	} `json:"data"`
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*PaymentResult, error) {
	if err := g.verifySignature(payload, signature); err != nil {
		return nil, err
	}

	event := webhookEvent{}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed decoding webhook event with error=%w", err)
	}

	var status repository.OrderStatus
	switch event.Type {
	case "payment_intent.succeeded", "checkout.session.completed":
		status = repository.OrderStatusPaid
	case "payment_intent.failed", "payment_intent.payment_failed":
		status = repository.OrderStatusFailed
	default:
		return nil, nil
	}

	reference := event.Data.Object.Metadata.OrderID
	if reference == "" {
		reference = event.Data.Object.ClientReferenceID
	}
	if reference == "" {
		return nil, nil
	}
	// A reference that is not one of our order ids cannot be ours; drop the
	// event rather than erroring, which would only make the provider redeliver.
	orderID, err := uuid.Parse(reference)
	if err != nil {
		return nil, nil
	}

	return &PaymentResult{OrderID: orderID, Status: status}, nil
}

// verifySignature checks the t=...,v1=... header: v1 must be the hex
// hmac-sha256 of "<t>.<payload>" under the webhook secret and t must be
// within the tolerance window.
func (g *StripeGateway) verifySignature(payload []byte, signature string) error {
	var timestamp string
	var candidates []string
	for _, part := range strings.Split(signature, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			candidates = append(candidates, value)
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return inErrors.ErrInvalidSignature
	}

	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return inErrors.ErrInvalidSignature
	}
	age := g.now().Sub(time.Unix(seconds, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return inErrors.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(g.cfg.WebhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) == 1 {
			return nil
		}
	}
	return inErrors.ErrInvalidSignature
}

func toCents(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
