// Package backoffice holds release metadata for the back office.
package backoffice

// Version is the release version of the module.
const Version = "0.3.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/backoffice"
