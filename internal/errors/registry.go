package errors

import "sort"

// Host error codes.
const (
	CodeConfigNotFound     = "RC100"
	CodeConfigInvalid      = "RC101"
	CodeConfigValue        = "RC102"
	CodeRoutesNotFound     = "RC110"
	CodeRoutesInvalid      = "RC111"
	CodeRoutesFormat       = "RC112"
	CodeSourceParse        = "RC120"
	CodeResolverIncomplete = "RC121"
	CodeTreeInvalid        = "RC130"
	CodePublishFailed      = "RC140"
	CodeChecksFailed       = "RC150"
	CodeServerFailed       = "RC160"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (RC100-RC109)
	// ============================================

	CodeConfigNotFound: {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No routecheck.json was found in the current directory or any parent directory.",
		DocURL:   "https://github.com/vango-dev/routecheck/blob/main/docs/errors.md#rc100",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "routecheck.json could not be read or is not valid JSON.",
		DocURL:   "https://github.com/vango-dev/routecheck/blob/main/docs/errors.md#rc101",
	},
	CodeConfigValue: {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration field has a value outside its allowed range.",
		DocURL:   "https://github.com/vango-dev/routecheck/blob/main/docs/errors.md#rc102",
	},

	// ============================================
	// Route Table Errors (RC110-RC119)
	// ============================================

	CodeRoutesNotFound: {
		Category: CategoryRoutes,
		Message:  "Route table not found",
		Detail:   "The route table file, or a file it includes, does not exist.",
		DocURL:   "https://github.com/vango-dev/routecheck/blob/main/docs/errors.md#rc110",
	},
	CodeRoutesInvalid: {
		Category: CategoryRoutes,
		Message:  "Invalid route table",
		Detail:   "The route table could not be decoded or violates the route table schema. Each route needs exactly one of handler, include or includeFile.",
		DocURL:   "https://github.com/vango-dev/routecheck/blob/main/docs/errors.md#rc111",
	},
	CodeRoutesFormat: {
		Category: CategoryRoutes,
		Message:  "Unsupported route table format",
		Detail:   "Route tables must be YAML (.yaml, .yml), TOML (.toml) or JSON (.json).",
		DocURL:   "https://github.com/vango-dev/routecheck/blob/main/docs/errors.md#rc112",
	},

	// ============================================
	// Handler Source Errors (RC120-RC129)
	// ============================================

	CodeSourceParse: {
		Category: CategorySource,
		Message:  "Handler source could not be parsed",
		Detail:   "A Go file in a source directory has a syntax error, so handler signatures cannot be read from it.",
		DocURL:   "https://github.com/vango-dev/routecheck/blob/main/docs/errors.md#rc120",
	},
	CodeResolverIncomplete: {
		Category: CategorySource,
		Message:  "No signature source configured",
		Detail:   "Neither source directories nor signature descriptors were given, so no handler can be resolved.",
		DocURL:   "https://github.com/vango-dev/routecheck/blob/main/docs/errors.md#rc121",
	},

	// ============================================
	// Check Errors (RC130-RC159)
	// ============================================

	CodeTreeInvalid: {
		Category: CategoryCheck,
		Message:  "Route tree is invalid",
		Detail:   "The route tree contains a cycle, an empty entry or an entry that is both a group and an endpoint. No diagnostics are reported for an invalid tree.",
		DocURL:   "https://github.com/vango-dev/routecheck/blob/main/docs/errors.md#rc130",
	},
	CodePublishFailed: {
		Category: CategoryPublish,
		Message:  "Report could not be published",
		Detail:   "Uploading the check report to S3 failed.",
		DocURL:   "https://github.com/vango-dev/routecheck/blob/main/docs/errors.md#rc140",
	},
	CodeChecksFailed: {
		Category: CategoryCheck,
		Message:  "Route checks failed",
		Detail:   "The check reported diagnostics at or above the --fail-on level.",
		DocURL:   "https://github.com/vango-dev/routecheck/blob/main/docs/errors.md#rc150",
	},
	CodeServerFailed: {
		Category: CategoryCheck,
		Message:  "Server stopped",
		Detail:   "The check server could not listen or stopped with an error.",
		DocURL:   "https://github.com/vango-dev/routecheck/blob/main/docs/errors.md#rc160",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
