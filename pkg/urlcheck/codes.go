package urlcheck

import (
	"sort"
	"strings"
)

// Namespace prefixes every diagnostic ID.
const Namespace = "urlchecker"

// Diagnostic IDs. They are a stable contract for tools that filter or
// silence findings.
const (
	E001 = Namespace + ".E001"
	E002 = Namespace + ".E002"
	E003 = Namespace + ".E003"
	E004 = Namespace + ".E004"
	E005 = Namespace + ".E005"
	E006 = Namespace + ".E006"
	E007 = Namespace + ".E007"
	W001 = Namespace + ".W001"
	W002 = Namespace + ".W002"
)

// Code describes one diagnostic ID.
type Code struct {
	ID     string `json:"id"`
	Level  Level  `json:"level"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	DocURL string `json:"docUrl"`
}

// Short returns the ID without the namespace, e.g. "E002".
func (c Code) Short() string {
	return ShortID(c.ID)
}

const docBase = "https://github.com/vango-dev/routecheck/blob/main/docs/codes.md#"

// codes maps diagnostic IDs to their descriptions.
var codes = map[string]Code{
	// ============================================
	// Errors
	// ============================================

	E001: {
		Level:  LevelError,
		Title:  "Route parameter has no matching handler parameter",
		Detail: "A placeholder in the route, or one of its enclosing groups, names a parameter the handler does not accept. The route promises a value the handler cannot receive.",
	},
	E002: {
		Level:  LevelError,
		Title:  "Handler parameter type does not match the converter",
		Detail: "The handler declares a type for the parameter that differs from the type the route converter produces. Only identical types and text aliases of str are compatible.",
	},
	E003: {
		Level:  LevelError,
		Title:  "Required handler parameter is not supplied",
		Detail: "The handler has a parameter without a default that no route placeholder and no default argument provides.",
	},
	E004: {
		Level:  LevelError,
		Title:  "Handler signature could not be resolved",
		Detail: "The handler's parameters could not be determined, so the endpoint was not checked. The hint carries the reason.",
	},
	E005: {
		Level:  LevelError,
		Title:  "Default argument does not match the handler parameter type",
		Detail: "A default argument in the route table has a value whose type cannot be passed to the typed handler parameter of the same name.",
	},
	E006: {
		Level:  LevelError,
		Title:  "Unexpected default argument",
		Detail: "The route table passes a default argument the handler has no parameter for.",
	},
	E007: {
		Level:  LevelError,
		Title:  "Malformed route pattern",
		Detail: "A route pattern could not be parsed. Its placeholders are ignored and endpoints below it are checked with the remaining bindings only.",
	},

	// ============================================
	// Warnings
	// ============================================

	W001: {
		Level:  LevelWarning,
		Title:  "Placeholder shadowed with an incompatible type",
		Detail: "A nested route redeclares a placeholder of an enclosing group with a different converter type. The innermost declaration wins.",
	},
	W002: {
		Level:  LevelWarning,
		Title:  "Handler accepts arbitrary route parameters",
		Detail: "The handler takes a catch-all parameter map, so missing parameters cannot be reported.",
	},
}

func init() {
	for id, c := range codes {
		c.ID = id
		c.DocURL = docBase + strings.ToLower(ShortID(id))
		codes[id] = c
	}
}

// Codes returns the diagnostic taxonomy sorted by ID, errors first.
func Codes() []Code {
	list := make([]Code, 0, len(codes))
	for _, c := range codes {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

// LookupCode returns the description of id. Both "urlchecker.E002" and
// "E002" are accepted.
func LookupCode(id string) (Code, bool) {
	c, ok := codes[QualifyID(id)]
	return c, ok
}

// ShortID strips the namespace from id.
func ShortID(id string) string {
	return strings.TrimPrefix(id, Namespace+".")
}

// QualifyID adds the namespace to a short ID.
func QualifyID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, Namespace+".") {
		return id
	}
	return Namespace + "." + strings.ToUpper(id)
}

func levelOf(id string) Level {
	if c, ok := codes[id]; ok {
		return c.Level
	}
	return LevelError
}
