package bddtests

import "embed"

// Features holds the built-in feature files, under the "features" directory.
//
//go:embed features/*.feature
var Features embed.FS
