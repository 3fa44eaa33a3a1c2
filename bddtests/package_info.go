// Package bddtests runs the Gherkin feature files of the conformance suite with godog.
//
// Every scenario gets its own fixture scenario from the fixtures package: the entity tables in
// its Given steps are provisioned before the steps that use their logical IDs, request paths are
// translated to server IDs as they are sent, and whatever the scenario created is removed when it
// ends. The suite as a whole is also snapshotted before the first scenario and restored after
// the last one.
package bddtests
