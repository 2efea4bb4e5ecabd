package domain

import "github.com/google/uuid"

// Flows that accept a client idempotency key.
const (
	FlowPurchase    = "purchase"
	FlowGift        = "gift"
	FlowCertificate = "certificate"
)

// BuildIdempotencyKey scopes a client key to a user and flow.
func BuildIdempotencyKey(userID uuid.UUID, flow, clientKey string) string {
	return userID.String() + ":" + flow + ":" + clientKey
}
