// internal/form/submit.go
package form

import (
	"strings"

	"github.com/newthinker/btdesk/internal/core"
)

// Submit validates the form and assembles the backend request.
// Only presence is checked; numeric bounds are left to the backend.
func (s State) Submit() (core.Request, error) {
	if blank(s.symbol) || blank(s.startDate) || blank(s.endDate) {
		return core.Request{}, core.WithMessage(core.ErrValidation, MsgRequired)
	}

	spec, ok := Spec(s.strategy)
	if !ok {
		return core.Request{}, core.WithMessage(core.ErrValidation, "Please select a strategy.")
	}

	params := make(map[string]string, len(spec.Fields))
	for _, f := range spec.Fields {
		v := strings.TrimSpace(s.params[f.Key])
		if v == "" {
			return core.Request{}, core.WithMessage(core.ErrValidation, spec.Missing)
		}
		params[f.Key] = v
	}

	return core.Request{
		Symbol:    strings.TrimSpace(s.symbol),
		Strategy:  s.strategy,
		StartDate: strings.TrimSpace(s.startDate),
		EndDate:   strings.TrimSpace(s.endDate),
		Params:    params,
	}, nil
}

func blank(v string) bool {
	return strings.TrimSpace(v) == ""
}
