package models

// Requests for the ops HTTP endpoints. Defined in domain for consistency and reuse.

type DecisionsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
	// RFC3339 or unix seconds; switches the query from the in-memory ring
	// to the durable audit store
	Since string `query:"since" json:"since"`
}

type KillSwitchRequest struct {
	Active bool   `query:"active" json:"active"`
	Reason string `query:"reason" json:"reason"`
}
