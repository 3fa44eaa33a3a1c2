// Package apitests contains the unit-style conformance suite for the todo manager service.
//
// Each test runs inside a scenario managed by the fixtures package: the entities it needs are
// provisioned by logical ID, every request path is translated into server IDs, and whatever the
// test created is deleted when it finishes. Checks where the service is known to differ from its
// documentation carry both status codes; the suite asserts one or the other depending on its
// ExpectMode.
package apitests
