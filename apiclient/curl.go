package apiclient

import (
	"sort"
	"strings"

	"github.com/alessio/shellescape"
)

// CurlCommand renders a request as a curl command line that reproduces it from a shell.
func CurlCommand(method Method, url string, header map[string][]string, body []byte) string {
	words := []string{"curl"}
	switch method {
	case MethodGet:
		words = append(words, "-i")
	case MethodHead:
		words = append(words, "-I")
	default:
		words = append(words, "-i", "-X", method.String())
	}
	var names []string
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range header[name] {
			words = append(words, "-H", shellescape.Quote(name+": "+value))
		}
	}
	if len(body) != 0 {
		words = append(words, "--data-raw", shellescape.Quote(string(body)))
	}
	words = append(words, shellescape.Quote(url))
	return strings.Join(words, " ")
}
