package apiclient

import (
	"fmt"
	"strings"
)

// Method is one of the HTTP verbs the todo manager service understands. The set is closed: a
// Method outside it is rejected by Client.Do rather than being passed through to the server.
type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodDelete
	MethodHead
)

// AllMethods lists every supported verb.
var AllMethods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodHead}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	case MethodHead:
		return "HEAD"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod accepts a verb name in any letter case.
func ParseMethod(s string) (Method, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, m := range AllMethods {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unsupported HTTP method %q", s)
}
