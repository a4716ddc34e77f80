package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator. Field errors are keyed by the JSON
// field name.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// a successful Paystack callback must name the transaction it settled
	v.RegisterStructValidation(paystackEventStructValidation, PaystackEventRequest{})

	return v
}

func paystackEventStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(PaystackEventRequest)
	if req.Type != "success" {
		return
	}
	if req.Reference == "" {
		sl.ReportError(req.Reference, "reference", "Reference", "required", "")
	}
	if req.Amount <= 0 {
		sl.ReportError(req.Amount, "amount", "Amount", "gt", "0")
	}
}
