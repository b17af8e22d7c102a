package errors

import "net/http"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
	Status     int
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Registry and transport (E100-E109)

	"E100": {
		Category:   CategoryRemote,
		Message:    "Failed to fetch components",
		Suggestion: "The component repository could not be reached; retry shortly or check the GitHub token",
		Status:     http.StatusInternalServerError,
	},
	"E101": {
		Category: CategoryNotFound,
		Message:  "Component not found",
		Status:   http.StatusNotFound,
	},
	"E102": {
		Category: CategoryNotFound,
		Message:  "User not found",
		Status:   http.StatusNotFound,
	},
	"E103": {
		Category: CategoryAuth,
		Message:  "No valid session found",
		Status:   http.StatusUnauthorized,
	},
	"E104": {
		Category: CategoryAuth,
		Message:  "Invalid origin",
		Status:   http.StatusForbidden,
	},
	"E105": {
		Category: CategoryValidation,
		Message:  "Invalid request",
		Status:   http.StatusBadRequest,
	},

	// Configuration and storage (E110-E119)

	"E110": {
		Category:   CategoryStorage,
		Message:    "Snapshot store failure",
		Suggestion: "Check the snapshot backend settings and credentials",
		Status:     http.StatusInternalServerError,
	},
	"E111": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration",
		Suggestion: "Run 'scm-web serve --help' for the supported settings",
		Status:     http.StatusInternalServerError,
	},
}

// Lookup returns the template for a code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
