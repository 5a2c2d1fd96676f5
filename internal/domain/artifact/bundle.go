package artifact

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/capsule"
)

// MaxReactBundleBytes caps the total input a react-jsx compile will
// process, mirroring the html path's MaxHTMLEntryBytes guard at a larger
// ceiling appropriate to a multi-file bundle.
const MaxReactBundleBytes = 10 << 20 // 10 MiB

// AllowedBareImports is the bare-specifier import allowlist for react-jsx
// capsules: anything else (a bare package import) is rejected, since the
// compiler has no package registry to fetch from and no sandboxing story
// for arbitrary third-party code running inside a capsule.
var AllowedBareImports = map[string]bool{
	"react":     true,
	"react-dom": true,
	"react-dom/client": true,
}

var importPattern = regexp.MustCompile(`(?m)^\s*import\s+(?:[^'"]*\s+from\s+)?['"]([^'"]+)['"]`)

// BundleHTML runs the html compile path: sanitize the entry file exactly
// the way the Bundle Ingestor does, using the compiled artifact's own
// base href so relative asset references resolve against the artifact's
// blob prefix rather than the source capsule's.
func BundleHTML(files []capsule.BundleFile, entry, baseHref string) ([]byte, error) {
	for _, f := range files {
		if path.Clean(f.Path) == path.Clean(entry) {
			return capsule.SanitizeHTML(f.Content, baseHref)
		}
	}

	return nil, fmt.Errorf("entry file %q not found in bundle", entry)
}

// ImportIssue is one rejected import statement.
type ImportIssue struct {
	File   string
	Import string
	Reason string
}

func (i ImportIssue) Error() string {
	return fmt.Sprintf("%s: import %q %s", i.File, i.Import, i.Reason)
}

// BundleReactJSX implements the react-jsx compile path: a size guard over
// the whole file set, an import-allowlist guard (bare imports must be in
// AllowedBareImports; anything else must be a relative import resolvable
// within the bundle), then a tree-shaking pass that walks the static
// import graph from entry and concatenates only reachable files, in
// dependency-then-dependent order, into one ES2017-compatible output file.
//
// There is no JS parser/bundler library anywhere in this stack's
// dependency surface, so this pass is a deliberately naive, regex-based
// static analysis rather than a real AST transform — sufficient to reject
// unsafe imports and drop dead files, not to do real dead-code elimination
// within a file.
func BundleReactJSX(files []capsule.BundleFile, entry string) ([]byte, []ImportIssue, error) {
	total := 0
	byPath := make(map[string]capsule.BundleFile, len(files))

	for _, f := range files {
		total += len(f.Content)
		byPath[path.Clean(f.Path)] = f
	}

	if total > MaxReactBundleBytes {
		return nil, nil, fmt.Errorf("bundle exceeds %d bytes", MaxReactBundleBytes)
	}

	entryPath := path.Clean(entry)
	if _, ok := byPath[entryPath]; !ok {
		return nil, nil, fmt.Errorf("entry file %q not found in bundle", entry)
	}

	var (
		issues  []ImportIssue
		visited = map[string]bool{}
		order   []string
	)

	var visit func(p string)
	visit = func(p string) {
		if visited[p] {
			return
		}

		visited[p] = true

		f, ok := byPath[p]
		if !ok {
			return
		}

		for _, m := range importPattern.FindAllStringSubmatch(string(f.Content), -1) {
			spec := m[1]

			if strings.HasPrefix(spec, ".") {
				resolved := resolveRelativeImport(p, spec, byPath)
				if resolved == "" {
					issues = append(issues, ImportIssue{File: p, Import: spec, Reason: "could not be resolved within the bundle"})
					continue
				}

				visit(resolved)

				continue
			}

			if !AllowedBareImports[spec] {
				issues = append(issues, ImportIssue{File: p, Import: spec, Reason: "is not an allowed package import"})
			}
		}

		order = append(order, p)
	}

	visit(entryPath)

	if len(issues) > 0 {
		return nil, issues, fmt.Errorf("rejected %d import(s)", len(issues))
	}

	// dependencies are appended before their dependents by construction
	// (visit recurses before appending p), so order is already a valid
	// topological concatenation order.

	var out bytes.Buffer

	for _, p := range order {
		fmt.Fprintf(&out, "// --- %s ---\n", p)
		out.Write(byPath[p].Content)
		out.WriteString("\n")
	}

	return out.Bytes(), nil, nil
}

func resolveRelativeImport(fromPath, spec string, byPath map[string]capsule.BundleFile) string {
	base := path.Join(path.Dir(fromPath), spec)

	candidates := []string{base, base + ".js", base + ".jsx", base + ".ts", base + ".tsx"}

	for _, c := range candidates {
		if _, ok := byPath[path.Clean(c)]; ok {
			return path.Clean(c)
		}
	}

	return ""
}
