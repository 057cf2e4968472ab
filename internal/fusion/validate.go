// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fusion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// ErrInvalidEvidence is returned by ValidateEvidence for items with an
// unknown source type or a confidence outside [0,1].
var ErrInvalidEvidence = errors.New("invalid evidence")

var evidenceValidator = newEvidenceValidator()

func newEvidenceValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("source_type", func(fl validator.FieldLevel) bool {
		return types.SourceType(fl.Field().String()).Known()
	})
	return v
}

// ValidateEvidence checks every item against its validate tags. Callers
// accepting evidence from users run it before Score, which itself never
// fails.
func ValidateEvidence(evidence []types.EvidenceItem) error {
	var problems []string
	for i, item := range evidence {
		err := evidenceValidator.Struct(item)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: item %d: %v", ErrInvalidEvidence, i, err)
		}
		for _, fe := range verrs {
			problems = append(problems, describeField(i, fe))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidEvidence, strings.Join(problems, "; "))
	}
	return nil
}

func describeField(i int, fe validator.FieldError) string {
	switch fe.Tag() {
	case "source_type":
		return fmt.Sprintf("item %d: unknown source type %q", i, fe.Value())
	case "gte", "lte":
		return fmt.Sprintf("item %d: %s %v is outside [0,1]", i, strings.ToLower(fe.Field()), fe.Value())
	default:
		return fmt.Sprintf("item %d: %s fails %s", i, strings.ToLower(fe.Field()), fe.Tag())
	}
}
