package errx

import "net/http"

// WrapPMS maps external pricing-system failures to the unified Error type.
func WrapPMS(err error) *Error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, PMSErrorMessage)
}
