package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/m-a-mahammad/shop-checkout/pkg/errors"
)

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		input   string
		want    PaymentMethod
		wantErr bool
	}{
		{input: "card", want: MethodCard},
		{input: "wallet", want: MethodWallet},
		{input: "cash_on_delivery", want: MethodCashOnDelivery},
		{input: "bitcoin", wantErr: true},
		{input: "", wantErr: true},
		{input: "CARD", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePaymentMethod(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaymentMethod_Electronic(t *testing.T) {
	assert.True(t, MethodCard.Electronic())
	assert.True(t, MethodWallet.Electronic())
	assert.False(t, MethodCashOnDelivery.Electronic())
}

func TestSessionConstructors(t *testing.T) {
	s := IframeSession("tok_abc", "5166")
	assert.Equal(t, SessionIframe, s.Kind)
	assert.Equal(t, "tok_abc", s.Token)
	assert.Equal(t, "5166", s.IframeID)
	assert.Empty(t, s.ClientSecret)

	u := UnifiedSession("csk_123")
	assert.Equal(t, SessionUnified, u.Kind)
	assert.Equal(t, "csk_123", u.ClientSecret)
	assert.Empty(t, u.Token)
}
