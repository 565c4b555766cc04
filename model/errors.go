package model

import "fmt"

// ModelError is implemented by every model-definition error. These are
// raised before simulation begins and always name the offending element.
type ModelError interface {
	error
	modelError()
}

// SpeciesError reports a malformed species definition.
type SpeciesError struct {
	Species string
	Reason  string
}

func (e *SpeciesError) Error() string {
	return fmt.Sprintf("model: species %q: %s", e.Species, e.Reason)
}
func (e *SpeciesError) modelError() {}

// ReactionError reports a malformed reaction definition.
type ReactionError struct {
	Reaction string
	Reason   string
}

func (e *ReactionError) Error() string {
	return fmt.Sprintf("model: reaction %q: %s", e.Reaction, e.Reason)
}
func (e *ReactionError) modelError() {}

// ParameterError reports a malformed parameter definition.
type ParameterError struct {
	Parameter string
	Reason    string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("model: parameter %q: %s", e.Parameter, e.Reason)
}
func (e *ParameterError) modelError() {}

// PropensityError reports a propensity or rate-rule expression that
// references an identifier outside the model namespace, or fails to
// parse. Never retried; the model is malformed.
type PropensityError struct {
	Owner string // reaction or rate rule name
	Expr  string
	Err   error
}

func (e *PropensityError) Error() string {
	return fmt.Sprintf("model: propensity of %q (%s): %v", e.Owner, e.Expr, e.Err)
}
func (e *PropensityError) Unwrap() error { return e.Err }
func (e *PropensityError) modelError()  {}
