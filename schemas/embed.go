// Package schemas provides the embedded JSON schemas of the quiz backend responses.
package schemas

import "embed"

// Contract contains one schema per response plus common.json with the shared definitions.
//
//go:embed contract/*.json
var Contract embed.FS
