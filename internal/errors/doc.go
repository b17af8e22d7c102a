// Package errors provides structured, coded errors for the registry web service.
//
// Every failure that reaches a user, either as an HTTP response or as CLI
// output, is an *Error carrying a stable code, a category, a short message,
// and the HTTP status it maps to.
//
// # Error Codes
//
//   - E100-E109: registry and transport failures
//   - E110-E119: storage and configuration failures
//
// # Usage
//
//	err := errors.New("E101").
//	    WithDetail("No component acme/button in the registry").
//	    Wrap(cause)
//
//	w.WriteHeader(err.HTTPStatus())
//	fmt.Fprint(os.Stderr, err.Format())
package errors
