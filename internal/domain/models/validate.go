package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate rejects malformed votes at the boundary. A vote failing here is a
// programming error on the submitting agent's side: the vote is excluded and
// the cycle continues with the remaining valid inputs.
func (v *AgentVote) Validate() error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid vote from %q: %w", v.AgentID, err)
	}
	return nil
}

// Validate checks a trade outcome before it updates performance history.
func (o *TradeOutcome) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid outcome for %q: %w", o.AgentID, err)
	}
	return nil
}
