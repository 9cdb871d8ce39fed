package store

import "strings"

// Per-client document names.
const (
	KeyCartItems    = "cart:items"
	KeyCartCheckout = "cart:checkout"
	KeyCartCoupon   = "cart:coupon"
	KeyCheckoutStep = "checkout:step"
	KeyCurrentUser  = "auth:user"
)

// ClientKey namespaces a document under a client id.
func ClientKey(clientID, name string) string {
	return "client:" + clientID + ":" + name
}

// AccountKey addresses an account record by e-mail.
func AccountKey(email string) string {
	return "accounts:" + strings.ToLower(strings.TrimSpace(email))
}
