package composer

import "strings"

// SplitImports separates import declarations from the rest of a source text.
// Imports are returned distinct and in first-seen order, each trimmed.
func SplitImports(source string) ([]string, string) {
	lines := strings.Split(source, "\n")
	seen := make(map[string]struct{})
	imports := make([]string, 0)
	body := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !isImport(trimmed) {
			body = append(body, line)
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		imports = append(imports, trimmed)
	}
	return imports, strings.Join(body, "\n")
}

// MergeImports returns the set union of both import lists, driver imports first.
func MergeImports(driver, user []string) []string {
	seen := make(map[string]struct{}, len(driver)+len(user))
	merged := make([]string, 0, len(driver)+len(user))
	for _, list := range [][]string{driver, user} {
		for _, imp := range list {
			if _, ok := seen[imp]; ok {
				continue
			}
			seen[imp] = struct{}{}
			merged = append(merged, imp)
		}
	}
	return merged
}

func isImport(trimmed string) bool {
	if trimmed == "import" {
		return true
	}
	return strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "import\t")
}
