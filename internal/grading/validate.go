package grading

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedRecord marks a record that cannot take part in aggregation.
var ErrMalformedRecord = errors.New("malformed score record")

var validate = validator.New()

// Validate checks that the record references an offering and a student and
// that every present component lies in [0,100] and the status is a known one.
func (r ScoreRecord) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fe.Field()+" is required")
		case "gte", "lte":
			problems = append(problems, fe.Field()+" must be between 0 and 100")
		case "oneof":
			problems = append(problems, fmt.Sprintf("%s %q is not a known status", fe.Field(), fe.Value()))
		default:
			problems = append(problems, fe.Field()+" failed "+fe.Tag())
		}
	}
	return fmt.Errorf("%w (record %d): %s", ErrMalformedRecord, r.ID, strings.Join(problems, ", "))
}

// partition splits records into valid ones and a count of skipped ones.
func partition(records []ScoreRecord) ([]ScoreRecord, int) {
	valid := make([]ScoreRecord, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if rec.Validate() != nil {
			skipped++
			continue
		}
		valid = append(valid, rec)
	}
	return valid, skipped
}
