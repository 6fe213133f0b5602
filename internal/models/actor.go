package models

// ActorClaims identifies the operator performing a mutation, for audit
// attribution only. The engine never authenticates; identity arrives from
// the caller (token subject or header) and a missing actor means a
// system-initiated change.
type ActorClaims struct {
	ActorID string `json:"actorId"`
	Name    string `json:"name,omitempty"`
}
