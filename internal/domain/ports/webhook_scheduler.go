package ports

// WebhookJob is one pending webhook delivery: a signed payload bound for a
// transaction's callback URL.
type WebhookJob struct {
	Payload     WebhookPayload
	CallbackURL string
}

// WebhookScheduler queues fire-and-forget webhook deliveries. The scheduler
// owns the delivery delay; Schedule must not block the caller for it.
// Delivery failures are the receiver's problem; no retry is performed.
type WebhookScheduler interface {
	Schedule(job WebhookJob)
}
