package framework

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// TargetStatus is the result of the initial query to the target service.
type TargetStatus struct {
	URL        string
	StatusCode int
	Body       []byte
}

// QueryTargetStatus verifies that the target service is responding, by polling the given URL
// until it answers or the timeout expires. Each attempt uses its own short timeout, since the
// service may not be accepting connections yet. Progress is written to output.
//
// Any HTTP response counts as the service being up; it is up to the caller to decide what a
// non-200 status means.
func QueryTargetStatus(url string, timeout time.Duration, output io.Writer) (TargetStatus, error) {
	fmt.Fprintf(output, "Connecting to target service at %s", url)

	client := &http.Client{Timeout: attemptTimeout(timeout)}
	deadline := time.Now().Add(timeout)
	for {
		fmt.Fprintf(output, ".")
		resp, err := client.Get(url)
		if err == nil {
			fmt.Fprintln(output)
			status := TargetStatus{URL: url, StatusCode: resp.StatusCode}
			if resp.Body != nil {
				data, err := io.ReadAll(resp.Body)
				resp.Body.Close()
				if err != nil {
					return status, fmt.Errorf("error reading status response from target service: %w", err)
				}
				status.Body = data
			}
			return status, nil
		}
		if !time.Now().Before(deadline) {
			fmt.Fprintln(output)
			return TargetStatus{}, fmt.Errorf("timed out, result of last query was: %w", err)
		}
		time.Sleep(time.Millisecond * 100)
	}
}

func attemptTimeout(total time.Duration) time.Duration {
	if total <= 0 || total > time.Second*2 {
		return time.Second * 2
	}
	return total
}

// Excerpt shortens a response body for log output to at most max bytes, never splitting a
// UTF-8 sequence.
func Excerpt(body []byte, max int) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
