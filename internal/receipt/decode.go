package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// dateLayouts are the ISO 8601 forms the parsing service is known to send
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

var validate = newValidator()

// itemPayload and payload mirror the wire format with pointers so that a
// missing field can be told apart from a zero value.
type itemPayload struct {
	Description *string          `json:"description" validate:"required"`
	Quantity    *decimal.Decimal `json:"quantity" validate:"required,gte=0"`
	Price       *decimal.Decimal `json:"price" validate:"required,gte=0"`
	Category    *string          `json:"category" validate:"required"`
}

type payload struct {
	ID                *int64           `json:"id"`
	StoreName         *string          `json:"store_name" validate:"required"`
	Date              *string          `json:"date" validate:"required,isodate"`
	Items             []itemPayload    `json:"items" validate:"required,dive"`
	Subtotal          *decimal.Decimal `json:"subtotal" validate:"required"`
	Tax               *decimal.Decimal `json:"tax" validate:"required"`
	Total             *decimal.Decimal `json:"total" validate:"required"`
	CategoriesSummary Categories       `json:"categories_summary" validate:"required,dive"`
}

// ValidationError reports the fields of a response that do not match the receipt shape
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid receipt response: " + strings.Join(e.Problems, ", ")
}

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	if err := v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := parseDate(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("registering isodate validation: %v", err))
	}

	return v
}

// Decode parses a receipt response body and checks it has the full receipt shape.
// A body that is not JSON, or JSON missing required fields, is an error.
func Decode(data []byte) (*Receipt, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding receipt: %w", err)
	}

	if err := validate.Struct(&p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, newValidationError(verrs)
		}
		return nil, fmt.Errorf("validating receipt: %w", err)
	}

	r := &Receipt{
		ID:                p.ID,
		StoreName:         strings.TrimSpace(*p.StoreName),
		Date:              *p.Date,
		Items:             make([]Item, 0, len(p.Items)),
		Subtotal:          *p.Subtotal,
		Tax:               *p.Tax,
		Total:             *p.Total,
		CategoriesSummary: p.CategoriesSummary,
	}
	for _, it := range p.Items {
		r.Items = append(r.Items, Item{
			Description: *it.Description,
			Quantity:    *it.Quantity,
			Price:       *it.Price,
			Category:    *it.Category,
		})
	}

	return r, nil
}

func newValidationError(verrs validator.ValidationErrors) *ValidationError {
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		// Drop the struct name prefix, keep the JSON path
		if idx := strings.Index(field, "."); idx >= 0 {
			field = field[idx+1:]
		}

		switch fe.Tag() {
		case "required":
			problems = append(problems, field+" is required")
		case "gte":
			problems = append(problems, fmt.Sprintf("%s must be >= %s", field, fe.Param()))
		case "isodate":
			problems = append(problems, field+" must be an ISO 8601 date")
		default:
			problems = append(problems, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return &ValidationError{Problems: problems}
}

// parseDate tries each accepted layout in turn
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", value)
}
