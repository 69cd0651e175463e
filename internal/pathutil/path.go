// Package pathutil provides path manipulation for slash-separated archive names.
package pathutil

import (
	"path"
	"strings"
)

// SanitizeName converts a user-provided entry name to a safe,
// slash-separated archive path.
//
// It performs the following transformations:
//   - Converts backslashes to forward slashes: `a\b` → "a/b"
//   - Strips a Windows drive prefix: "C:/etc" → "etc"
//   - Collapses consecutive slashes: "etc//nginx" → "etc/nginx"
//   - Resolves "." and ".." elements lexically
//   - Strips leading slashes and any ".." elements that would escape
//     the archive root: "../../etc" → "etc"
//
// The result never begins with "/" and never contains "." or ".."
// elements. An input that resolves to the root yields "".
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if len(name) >= 2 && name[1] == ':' && isDriveLetter(name[0]) {
		name = name[2:]
	}

	name = path.Clean(name)
	if name == "." || name == "/" {
		return ""
	}

	name = strings.TrimPrefix(name, "/")
	for strings.HasPrefix(name, "../") {
		name = name[len("../"):]
	}
	if name == ".." {
		return ""
	}
	return name
}

// JoinPrefix merges an optional prefix into name with a single slash
// separator, collapsing redundant separators at the join point.
func JoinPrefix(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(name, "/")
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
