package manifest

import (
	"fmt"
	"strings"
	"unicode"
)

// ToPascalCase converts a string to PascalCase.
// "my-proto" -> "MyProto", "dns" -> "Dns", "httpRequest" -> "HttpRequest"
func ToPascalCase(s string) string {
	var words []string
	current := ""
	for i, r := range s {
		if r == '-' || r == '_' || r == '.' {
			if current != "" {
				words = append(words, current)
				current = ""
			}
			continue
		}
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			if prev >= 'a' && prev <= 'z' {
				words = append(words, current)
				current = ""
			}
		}
		current += string(r)
	}
	if current != "" {
		words = append(words, current)
	}

	var result string
	for _, w := range words {
		if w == "" {
			continue
		}
		result += strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return result
}

// reservedModules lists namespaces of the runtime and the compiler's own
// generated code. A project module may not use them as its root segment.
var reservedModules = map[string]bool{
	"Hilti":  true,
	"BinPAC": true,
	"Binpac": true,
	"Bro":    true,
	"Main":   true,
}

// IsReservedModule reports whether the root segment of name is reserved.
// "Hilti::Ext" is reserved because its root is "Hilti"; "MyProto::Hilti"
// is not.
func IsReservedModule(name string) bool {
	root := name
	if idx := strings.Index(name, "::"); idx >= 0 {
		root = name[:idx]
	}
	return reservedModules[root]
}

// CheckModuleName validates a module name: one or more identifiers
// separated by "::", with an unreserved root.
func CheckModuleName(name string) error {
	if name == "" {
		return fmt.Errorf("module name is empty")
	}
	for _, seg := range strings.Split(name, "::") {
		if !isIdent(seg) {
			return fmt.Errorf("invalid module name %q", name)
		}
	}
	if IsReservedModule(name) {
		return fmt.Errorf("module name %q uses a reserved namespace", name)
	}
	return nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
