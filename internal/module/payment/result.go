package payment

// ResultStatus is the caller-facing outcome of a payment operation.
type ResultStatus string

const (
	ResultSuccess  ResultStatus = "success"
	ResultRedirect ResultStatus = "redirect"
	ResultFailed   ResultStatus = "failed"
)

// RenderInstruction tells the HTTP layer to emit a full HTML body instead of
// a plain redirect. Plain suppresses any debug or instrumentation markup;
// gateways that POST back parse the body and choke on anything extra.
type RenderInstruction struct {
	HTML  string
	Plain bool
}

// Result is the outcome of processPayment, capture, refund or completePayment.
// Exactly one of the presentation fields applies: RedirectURL for GET-style
// redirects, Page for rendered HTML, neither for settled outcomes.
type Result struct {
	Status      ResultStatus
	RedirectURL string
	Page        *RenderInstruction

	// Message carries the user-facing error for failed outcomes, sourced
	// from the transaction's message field.
	Message string

	// Transaction is the attempt's audit record. Nil only on the fully-paid
	// fast path, which never contacts a gateway.
	Transaction *Transaction
}

// Success reports whether the operation settled successfully.
func (r *Result) Success() bool {
	return r.Status == ResultSuccess
}

// NotificationOutcome is the response acceptNotification hands the HTTP layer
// to relay to the gateway verbatim.
type NotificationOutcome struct {
	// Ack is the provider-specific body acknowledging or rejecting the
	// notification.
	Ack string

	// Rejected is true when the notification failed verification and Ack
	// carries the rejection body.
	Rejected bool

	Transaction *Transaction
}
