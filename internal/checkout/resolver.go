// Package checkout orchestrates payment-session creation: method
// resolution, trusted totals, single-submission guarding and the gateway
// handshake.
package checkout

import (
	"github.com/m-a-mahammad/shop-checkout/internal/domain"
)

// Resolution is the outcome of mapping a payment method to a gateway
// integration. Electronic is false when no gateway session is needed.
type Resolution struct {
	IntegrationID int64
	Electronic    bool
}

// MethodResolver maps payment methods to configured gateway integration
// IDs.
type MethodResolver struct {
	integrationIDs map[domain.PaymentMethod]int64
}

// NewMethodResolver creates a resolver from the configured card and wallet
// integration IDs. A zero ID means the method has no gateway integration.
func NewMethodResolver(cardID, walletID int64) *MethodResolver {
	return &MethodResolver{
		integrationIDs: map[domain.PaymentMethod]int64{
			domain.MethodCard:   cardID,
			domain.MethodWallet: walletID,
		},
	}
}

// Resolve maps a parsed payment method to a gateway integration. Cash on
// delivery, and electronic methods without a configured integration,
// resolve to a non-electronic outcome: the order proceeds with no gateway
// session.
func (r *MethodResolver) Resolve(method domain.PaymentMethod) Resolution {
	if !method.Electronic() {
		return Resolution{}
	}

	id := r.integrationIDs[method]
	if id == 0 {
		return Resolution{}
	}

	return Resolution{IntegrationID: id, Electronic: true}
}
