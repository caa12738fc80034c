//go:build !cgo

package android

import "context"

// ScanKotlinScript finds a literal platform version in a Kotlin build script.
// Without cgo there is no tree-sitter parser, so the line-based Groovy
// scanner is used; it covers the assignment and call forms.
func ScanKotlinScript(_ context.Context, src []byte) (int, bool) {
	return ScanGroovyScript(src)
}
