package payment

import (
	"github.com/GlideMe/commerce/internal/module/order"
	"github.com/GlideMe/commerce/internal/module/payment/gateway"
)

// BuildCard assembles the gateway card payload for an order. The gateway
// populates payment instrument fields from the submitted form first, then the
// order's addresses fill in billing and shipping details.
func BuildCard(ord *order.Order, g gateway.Gateway, form gateway.Form) *gateway.Card {
	card := &gateway.Card{}
	g.PopulateCard(card, form)

	if billing := ord.BillingAddress; billing != nil {
		card.BillingFirstName = billing.FirstName
		card.BillingLastName = billing.LastName
		card.BillingAddress1 = billing.Address1
		card.BillingAddress2 = billing.Address2
		card.BillingCity = billing.City
		card.BillingZip = billing.ZipCode
		card.BillingCountry = billing.CountryISO
		card.BillingState = billing.State()
		card.BillingPhone = billing.Phone
		card.BillingCompany = billing.BusinessName

		if card.FirstName == "" {
			card.FirstName = billing.FirstName
		}
		if card.LastName == "" {
			card.LastName = billing.LastName
		}
		card.Company = billing.BusinessName
	}

	if shipping := ord.ShippingAddress; shipping != nil {
		card.ShippingFirstName = shipping.FirstName
		card.ShippingLastName = shipping.LastName
		card.ShippingAddress1 = shipping.Address1
		card.ShippingAddress2 = shipping.Address2
		card.ShippingCity = shipping.City
		card.ShippingZip = shipping.ZipCode
		card.ShippingCountry = shipping.CountryISO
		card.ShippingState = shipping.State()
		card.ShippingPhone = shipping.Phone
		card.ShippingCompany = shipping.BusinessName
	}

	card.Email = ord.Email
	return card
}
