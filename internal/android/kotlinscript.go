//go:build cgo

package android

import (
	"context"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/kotlin"
)

var compileSdkNames = map[string]bool{
	"compileSdk":        true,
	"compileSdkVersion": true,
}

// ScanKotlinScript finds a literal platform version in a Kotlin build script:
// compileSdk = 36, compileSdkVersion(34), or compileSdk { version = release(36) }.
func ScanKotlinScript(ctx context.Context, src []byte) (int, bool) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(kotlin.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return 0, false
	}
	defer tree.Close()

	var found int
	var ok bool
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Type() != "simple_identifier" || !compileSdkNames[n.Content(src)] {
			return true
		}
		stmt := enclosingStatement(n)
		if stmt == nil {
			return true
		}
		if lit := firstOfType(stmt, "integer_literal"); lit != nil {
			if v, err := strconv.Atoi(strings.ReplaceAll(lit.Content(src), "_", "")); err == nil {
				found, ok = v, true
				return false
			}
		}
		return true
	})
	return found, ok
}

// enclosingStatement climbs from an identifier to the assignment or call it
// belongs to. The climb is bounded so an identifier nested in a larger block
// never resolves to the block itself.
func enclosingStatement(n *sitter.Node) *sitter.Node {
	cur := n
	for i := 0; i < 4 && cur != nil; i++ {
		cur = cur.Parent()
		if cur == nil {
			return nil
		}
		switch cur.Type() {
		case "assignment", "call_expression":
			return cur
		}
	}
	return nil
}

func firstOfType(n *sitter.Node, typ string) *sitter.Node {
	var hit *sitter.Node
	walk(n, func(c *sitter.Node) bool {
		if c.Type() == typ {
			hit = c
			return false
		}
		return true
	})
	return hit
}

// walk visits n and its named descendants depth first until fn returns false.
func walk(n *sitter.Node, fn func(*sitter.Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if !walk(n.NamedChild(i), fn) {
			return false
		}
	}
	return true
}
