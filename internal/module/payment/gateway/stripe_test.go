package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func TestStripeIntentResponseClassification(t *testing.T) {
	tests := []struct {
		name     string
		intent   *stripe.PaymentIntent
		success  bool
		redirect bool
	}{
		{
			name:    "succeeded",
			intent:  &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded},
			success: true,
		},
		{
			name:    "requires capture counts as success",
			intent:  &stripe.PaymentIntent{ID: "pi_2", Status: stripe.PaymentIntentStatusRequiresCapture},
			success: true,
		},
		{
			name: "requires action with redirect",
			intent: &stripe.PaymentIntent{
				ID:     "pi_3",
				Status: stripe.PaymentIntentStatusRequiresAction,
				NextAction: &stripe.PaymentIntentNextAction{
					RedirectToURL: &stripe.PaymentIntentNextActionRedirectToURL{
						URL: "https://hooks.stripe.com/3ds/abc",
					},
				},
			},
			redirect: true,
		},
		{
			name:   "requires payment method is failed",
			intent: &stripe.PaymentIntent{ID: "pi_4", Status: stripe.PaymentIntentStatusRequiresPaymentMethod},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := stripeIntentResponse(tt.intent, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.success, resp.Success)
			assert.Equal(t, tt.redirect, resp.Redirect)
			assert.Equal(t, tt.intent.ID, resp.Reference)
			if tt.redirect {
				assert.Equal(t, "GET", resp.RedirectMethod)
				assert.Equal(t, "https://hooks.stripe.com/3ds/abc", resp.RedirectURL)
			}
		})
	}
}

func TestStripeIntentResponseUsesLastPaymentError(t *testing.T) {
	intent := &stripe.PaymentIntent{
		ID:     "pi_5",
		Status: stripe.PaymentIntentStatusRequiresPaymentMethod,
		LastPaymentError: &stripe.Error{
			Code: stripe.ErrorCodeCardDeclined,
			Msg:  "Your card was declined.",
		},
	}

	resp, err := stripeIntentResponse(intent, nil)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Your card was declined.", resp.Message)
	assert.Equal(t, string(stripe.ErrorCodeCardDeclined), resp.Code)
}

func TestStripeErrorResponseDeclineVsTransport(t *testing.T) {
	decline := &stripe.Error{Code: stripe.ErrorCodeCardDeclined, Msg: "declined"}
	resp, err := stripeErrorResponse(decline)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "declined", resp.Message)

	_, err = stripeErrorResponse(errors.New("dial tcp: timeout"))
	require.Error(t, err)
}

func TestStripePopulateRequest(t *testing.T) {
	g := NewStripeGateway(&StripeConfig{})
	params := Params{}
	g.PopulateRequest(params, Form{"payment_method": "pm_123", "receipt_email": "jo@example.com"})

	assert.Equal(t, "pm_123", params["paymentMethod"])
	assert.Equal(t, "jo@example.com", params["receiptEmail"])

	empty := Params{}
	g.PopulateRequest(empty, Form{})
	assert.Empty(t, empty)
}

func TestStripeDefaultsToPurchase(t *testing.T) {
	g := NewStripeGateway(&StripeConfig{})
	assert.Equal(t, PaymentTypePurchase, g.PaymentType())
}

func TestParamHelpers(t *testing.T) {
	data := map[string]any{"s": "text", "n": int64(42)}
	assert.Equal(t, "text", paramString(data, "s"))
	assert.Empty(t, paramString(data, "missing"))
	assert.Empty(t, paramString(data, "n"))
	assert.Equal(t, int64(42), paramInt64(data, "n"))
	assert.Zero(t, paramInt64(data, "s"))
}
