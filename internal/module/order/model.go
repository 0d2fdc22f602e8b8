package order

import (
	"time"

	"github.com/google/uuid"
)

// Order is the aggregate the payment core settles against. The payment
// module mutates PaidTotal, AuthorizedTotal, DatePaid and IsCompleted only
// through the Service recompute/complete calls.
type Order struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Number string    `json:"number" gorm:"uniqueIndex;not null"`
	Email  string    `json:"email"`

	TotalPrice      int64  `json:"total_price"` // In cents
	PaidTotal       int64  `json:"paid_total" gorm:"default:0"`
	AuthorizedTotal int64  `json:"authorized_total" gorm:"default:0"`
	Currency        string `json:"currency" gorm:"default:usd"`

	// PaymentCurrency and PaymentRate capture the currency the customer is
	// charged in and the exchange rate against Currency at checkout time.
	PaymentCurrency string  `json:"payment_currency"`
	PaymentRate     float64 `json:"payment_rate" gorm:"default:1"`

	IsCompleted bool       `json:"is_completed" gorm:"default:false"`
	DatePaid    *time.Time `json:"date_paid,omitempty"`

	GatewayHandle string `json:"gateway" gorm:"index"`

	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`

	BillingAddress  *Address `json:"billing_address,omitempty" gorm:"embedded;embeddedPrefix:billing_"`
	ShippingAddress *Address `json:"shipping_address,omitempty" gorm:"embedded;embeddedPrefix:shipping_"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Order) TableName() string {
	return "orders"
}

// IsPaid returns true when the order's balance is fully covered. Zero-value
// orders are paid from the start.
func (o *Order) IsPaid() bool {
	return o.PaidTotal >= o.TotalPrice
}

// OutstandingBalance returns the amount still owed, never negative.
func (o *Order) OutstandingBalance() int64 {
	if o.PaidTotal >= o.TotalPrice {
		return 0
	}
	return o.TotalPrice - o.PaidTotal
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID     uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	Description string    `json:"description" gorm:"not null"`
	Quantity    int       `json:"quantity" gorm:"default:1"`
	UnitPrice   int64     `json:"unit_price"` // In cents
	Amount      int64     `json:"amount"`     // quantity * unit_price
}

// TableName returns the database table name.
func (OrderItem) TableName() string {
	return "order_items"
}

// Address holds a billing or shipping address.
type Address struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	ZipCode      string `json:"zip_code"`
	CountryISO   string `json:"country_iso"` // ISO 3166-1 alpha-2
	StateAbbr    string `json:"state_abbr"`
	StateName    string `json:"state_name"`
	StateText    string `json:"state_text"` // free-text fallback for countries without registered states
	Phone        string `json:"phone"`
	BusinessName string `json:"business_name"`
}

// State returns the best available state value: abbreviation, then registered
// name, then the free-text fallback.
func (a *Address) State() string {
	if a.StateAbbr != "" {
		return a.StateAbbr
	}
	if a.StateName != "" {
		return a.StateName
	}
	return a.StateText
}
