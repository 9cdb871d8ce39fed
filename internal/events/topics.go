package events

// Topic constants for domain events emitted by the storefront.
const (
	TopicCheckoutCompleted = "checkout.completed"
	TopicPixExpired        = "pix.expired"
	TopicAccountRegistered = "account.registered"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicCheckoutCompleted,
		TopicPixExpired,
		TopicAccountRegistered,
	}
}
