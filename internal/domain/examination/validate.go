package examination

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const requestSection = "request"

var departmentRules = buildRules()

func buildRules() map[Department]validation.MapRule {
	rules := make(map[Department]validation.MapRule, len(fieldTables))
	for d, table := range fieldTables {
		var keys []*validation.KeyRules
		for _, f := range table {
			if f.Required {
				keys = append(keys, validation.Key(f.External, validation.Required))
			}
		}
		rules[d] = validation.Map(keys...).AllowExtraKeys()
	}
	return rules
}

// Validate checks that every department was submitted and that each one
// carries its required fields. Values are only checked for presence.
func Validate(patientID string, subs Submissions) error {
	verr := &ValidationError{}
	for _, d := range Departments {
		if len(subs.Section(d)) == 0 {
			verr.Missing = append(verr.Missing, d)
		}
	}
	if len(verr.Missing) > 0 {
		return verr
	}

	if err := validation.Validate(patientID, validation.Required); err != nil {
		verr.add(requestSection, validation.Errors{"patientId": err})
	}
	for _, d := range Departments {
		err := validation.Validate(map[string]string(subs.Section(d)), departmentRules[d])
		if err == nil {
			continue
		}
		var fieldErrs validation.Errors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate %s: %w", d, err)
		}
		verr.add(string(d), fieldErrs)
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (e *ValidationError) add(section string, errs validation.Errors) {
	if e.Fields == nil {
		e.Fields = make(map[string]validation.Errors)
	}
	e.Fields[section] = errs
}
