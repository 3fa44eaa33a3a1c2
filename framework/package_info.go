// Package framework contains the low-level implementation of test harness infrastructure
// that is not specific to the todo manager domain.
//
// The general model is:
//
// 1. The test harness talks to a target service that is already running somewhere else. It
// cannot start, stop or reset that service; it can only query it over HTTP.
//
// 2. There is a general notion of a test context which is similar to Go's *testing.T,
// allowing pieces of test logic to be associated with a test identifier and to accumulate
// success/failure results, along with debug output that is only shown if the test fails.
//
// The domain-specific code that knows what is being tested is responsible for making requests
// to the target service and for providing a domain-specific test API on top of the test context.
package framework
