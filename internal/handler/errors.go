package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/labstack/echo/v4"

	"github.com/shinyyama/closet-market/internal/service"
)

// RequestValidator plugs validator/v10 into echo's c.Validate. Messages come
// from the English translations.
type RequestValidator struct {
	v     *validator.Validate
	trans ut.Translator
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	enT := en.New()
	trans, _ := ut.New(enT, enT).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		trans = nil
	}
	return &RequestValidator{v: v, trans: trans}
}

func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &service.ValidationError{Field: fe.Field(), Message: rv.message(fe)}
	}
	return err
}

func (rv *RequestValidator) message(fe validator.FieldError) string {
	if rv.trans != nil {
		if msg := fe.Translate(rv.trans); msg != "" {
			return msg
		}
	}
	msg := "failed " + fe.Tag()
	if fe.Param() != "" {
		msg += "=" + fe.Param()
	}
	return msg
}

var statusByError = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrSwapExpired, http.StatusConflict, "swap_expired"},
	{service.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{service.ErrAlreadyRated, http.StatusConflict, "already_rated"},
	{service.ErrListingUnavailable, http.StatusConflict, "listing_unavailable"},
	{service.ErrListingCommitted, http.StatusConflict, "listing_committed"},
	{service.ErrConcurrencyConflict, http.StatusConflict, "conflict"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrExternalProvider, http.StatusBadGateway, "external_provider_error"},
	{service.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

// writeError renders err with the status its sentinel maps to. Unmapped
// errors are logged and hidden behind a 500.
func writeError(c echo.Context, err error) error {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		resp := NewErrorResponse("validation_error", ve.Error())
		resp.Error.Field = ve.Field
		return c.JSON(http.StatusBadRequest, resp)
	}
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return c.JSON(m.status, NewErrorResponse(m.code, err.Error()))
		}
	}
	slog.ErrorContext(c.Request().Context(), "request failed", "error", err,
		"method", c.Request().Method, "path", c.Path())
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "internal server error"))
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", msg))
}

// bindAndValidate binds the body and runs c.Validate when a validator is set.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return &service.ValidationError{Message: "invalid json"}
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(req)
}
