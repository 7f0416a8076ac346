package log

const (
	KeyAppName       = "app"
	KeyCacheKey      = "cacheKey"
	KeyCartID        = "cartId"
	KeyClientKey     = "clientKey"
	KeyConfig        = "config"
	KeyEmail         = "email"
	KeyGuestToken    = "guestToken"
	KeyOrderID       = "orderId"
	KeyOwner         = "owner"
	KeyProcess       = "process"
	KeyProductID     = "productId"
	KeyQuantity      = "quantity"
	KeyRequestBody   = "requestBody"
	KeyRequestHost   = "host"
	KeyRequestID     = "requestId"
	KeyRequestIp     = "requesterIP"
	KeyRequestMethod = "requestMethod"
	KeyRequestURI    = "requestURI"
	KeyTag           = "tag"
	KeyUserID        = "userId"
)
