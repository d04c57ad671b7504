package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestPluginsDoNotImportInternal enforces that plugin implementation
// packages do not import the framework's internal packages. Plugins must
// depend only on the stable surfaces in pkg/ and sdk/ so they keep
// working when internal storage or caching machinery changes.
func TestPluginsDoNotImportInternal(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("cannot get working dir: %v", err)
	}

	root := wd // this file lives in the plugins directory

	const forbiddenPrefix = "github.com/xpingli/qiime2/internal/"

	var violations []string

	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error { //nolint:wrapcheck
		if err != nil { // propagate filesystem errors
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		// Ignore this test file itself just in case
		if path == filepath.Join(root, "architecture_test.go") {
			return nil
		}

		// #nosec G304 -- path comes from controlled WalkDir over the local repository tree,
		// restricted to .go source files under plugins; no external input.
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		lines := strings.Split(string(data), "\n")
		inImport := false
		for _, raw := range lines {
			line := strings.TrimSpace(raw)
			if !inImport {
				if strings.HasPrefix(line, "import (") {
					inImport = true
					continue
				}
				if strings.HasPrefix(line, "import ") { // single import form
					if q := extractQuoted(line); strings.HasPrefix(q, forbiddenPrefix) {
						violations = append(violations, path)
					}
				}
				continue
			}
			// inside import block
			if line == ")" {
				inImport = false
				continue
			}
			if q := extractQuoted(line); strings.HasPrefix(q, forbiddenPrefix) {
				violations = append(violations, path)
			}
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk plugins dir: %v", walkErr)
	}

	if len(violations) > 0 {
		for _, v := range violations {
			// Report each offending file for clarity
			// (Keep error format stable for grepping / future tooling.)
			t.Errorf("plugin file imports forbidden internal package: %s", v)
		}
	}
}

// extractQuoted returns the first double-quoted string on a line, or "".
// Duplicated locally to keep the guard self-contained.
func extractQuoted(line string) string {
	start := strings.Index(line, "\"")
	if start == -1 {
		return ""
	}
	end := strings.Index(line[start+1:], "\"")
	if end == -1 {
		return ""
	}
	return line[start+1 : start+1+end]
}
