package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"lemon-sso/internal/security"
	"lemon-sso/pkg/apierror"
)

const maxBodyBytes = 1 << 20

// FieldError is one entry of a 422 reason list.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return security.ValidatePassword(fl.Field().String()) == nil
	})
	return v
}

// decodeAndValidate reads a JSON body into dst. Malformed JSON is a 400,
// rule violations a 422.
func decodeAndValidate(r *http.Request, dst any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("Request body is empty.", nil)
		}
		return apierror.BadRequest("Malformed JSON body.", nil)
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apierror.Unprocessable(nil)
		}

		reason := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			reason = append(reason, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		return apierror.Unprocessable(reason)
	}

	return nil
}
