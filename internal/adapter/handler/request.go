package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rl1809/inventory-cart/internal/core/domain"
)

const maxBodyBytes = 1 << 20

type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return &requestValidator{v: v}
}

// decode reads a JSON body into dest and validates it. Failures wrap
// domain.ErrValidation.
func (rv *requestValidator) decode(w http.ResponseWriter, r *http.Request, dest any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() {
		io.Copy(io.Discard, body)
	}()

	if err := json.NewDecoder(body).Decode(dest); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
	}
	if err := rv.v.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	details := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		details = append(details, fieldErr.Field()+" "+validationMessage(fieldErr))
	}
	sort.Strings(details)
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(details, ", "))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	}
	return "is invalid"
}
