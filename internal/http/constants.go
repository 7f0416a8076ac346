package http

const (
	KeyHeaderContentType       = "Content-Type"
	KeyHeaderRequestID         = "X-Request-Id"
	KeyHeaderPaymentSignature  = "Stripe-Signature"
	ValueHeaderApplicationJson = "application/json"
)
