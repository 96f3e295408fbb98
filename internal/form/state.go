// internal/form/state.go
package form

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/newthinker/btdesk/internal/core"
)

// State holds the form's field values. It is immutable: every setter
// returns a new State and leaves the receiver untouched.
type State struct {
	strategy  core.Strategy
	symbol    string
	startDate string
	endDate   string
	params    map[string]string
}

// New returns an empty form with the default strategy selected.
func New() State {
	return State{strategy: core.StrategyThresholdCross}
}

func (s State) Strategy() core.Strategy { return s.strategy }
func (s State) Symbol() string          { return s.symbol }
func (s State) StartDate() string       { return s.startDate }
func (s State) EndDate() string         { return s.endDate }

// Param returns the current value of a strategy field.
func (s State) Param(key string) string {
	return s.params[key]
}

// Spec returns the selected strategy's presentation spec.
func (s State) Spec() StrategySpec {
	spec, _ := Spec(s.strategy)
	return spec
}

// WithStrategy selects a strategy. Values typed for other strategies are kept.
func (s State) WithStrategy(st core.Strategy) State {
	s.strategy = st
	return s
}

// WithSymbol sets the ticker, uppercased.
func (s State) WithSymbol(symbol string) State {
	s.symbol = strings.ToUpper(symbol)
	return s
}

func (s State) WithStartDate(d string) State {
	s.startDate = d
	return s
}

func (s State) WithEndDate(d string) State {
	s.endDate = d
	return s
}

// WithParam sets a strategy field value.
func (s State) WithParam(key, value string) State {
	params := make(map[string]string, len(s.params)+1)
	for k, v := range s.params {
		params[k] = v
	}
	params[key] = value
	s.params = params
	return s
}

// Set assigns any field by its wire key.
func (s State) Set(key, value string) (State, error) {
	switch key {
	case KeyStrategy:
		st, err := core.ParseStrategy(value)
		if err != nil {
			return s, err
		}
		return s.WithStrategy(st), nil
	case KeySymbol:
		return s.WithSymbol(value), nil
	case KeyStartDate:
		return s.WithStartDate(value), nil
	case KeyEndDate:
		return s.WithEndDate(value), nil
	}
	for _, k := range ParamKeys() {
		if k == key {
			return s.WithParam(key, value), nil
		}
	}
	return s, fmt.Errorf("unknown field: %q", key)
}

// Get reads any field by its wire key.
func (s State) Get(key string) string {
	switch key {
	case KeyStrategy:
		return string(s.strategy)
	case KeySymbol:
		return s.symbol
	case KeyStartDate:
		return s.startDate
	case KeyEndDate:
		return s.endDate
	}
	return s.params[key]
}

// FromValues builds a State from submitted form values. Unknown keys are
// ignored; a missing strategy selects the default.
func FromValues(v url.Values) (State, error) {
	return New().Merge(v)
}

// Merge applies every known key present in v. Fields absent from v keep
// their current value, so a form that only posts the selected strategy's
// inputs does not wipe the others.
func (s State) Merge(v url.Values) (State, error) {
	if raw := v.Get(KeyStrategy); raw != "" {
		next, err := s.Set(KeyStrategy, raw)
		if err != nil {
			return s, err
		}
		s = next
	}
	for _, k := range []string{KeySymbol, KeyStartDate, KeyEndDate} {
		if _, ok := v[k]; ok {
			s, _ = s.Set(k, v.Get(k))
		}
	}
	for _, k := range ParamKeys() {
		if _, ok := v[k]; ok {
			s = s.WithParam(k, v.Get(k))
		}
	}
	return s, nil
}

// Values returns every non-empty field, suitable for re-rendering.
func (s State) Values() url.Values {
	v := url.Values{}
	v.Set(KeyStrategy, string(s.strategy))
	for _, k := range []string{KeySymbol, KeyStartDate, KeyEndDate} {
		if val := s.Get(k); val != "" {
			v.Set(k, val)
		}
	}
	for k, val := range s.params {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}
