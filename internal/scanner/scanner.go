// Package scanner is a reference dependency-scanner adapter, used by
// tests and by the CLI's --scanner-dir option (the real scanner
// is an external collaborator, per §1's non-goals). It walks a directory
// of toy fixture files and produces a real imdg.Graph by parsing each
// fixture's import declarations with tree-sitter.
//
// smacker/go-tree-sitter ships no Swift grammar, so fixtures are written
// in the subset of Go syntax tree-sitter's golang grammar already parses
// (`package NAME` + `import "OTHER"` declarations) and named with a
// `.swift` suffix to match the literal fixture names the spec's §8
// scenarios use (main.swift, other.swift, and the module fixtures G, H,
// J, T, Y). Grounded on the teacher's internal/symbols/treesitter.go
// (tree-sitter Parser wrapper, directory walk, per-file extraction).
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"incdriver/internal/imdg"
)

// Fixture describes one parsed module file: its declared name and the
// names of every module it imports.
type Fixture struct {
	Name       string
	Imports    []string
	Path       string
	IsClang    bool // a `.modulemap`-suffixed fixture is scanned as Clang
	IsPrebuilt bool // a `.prebuilt`-suffixed fixture is scanned as already-built
}

// Scanner is the tree-sitter reference parser, reusable across directories.
type Scanner struct {
	parser *sitter.Parser
}

// New returns a reference Scanner.
func New() *Scanner {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &Scanner{parser: p}
}

// ScanDir walks dir for fixture files and returns the resulting IMDG,
// rooted at the module named "main" if present, else the first fixture
// found in sorted order.
func (s *Scanner) ScanDir(ctx context.Context, dir string) (*imdg.Graph, error) {
	fixtures, err := s.parseDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	return buildGraph(fixtures)
}

// DirScanner adapts a Scanner bound to one fixed directory to the
// driver.Scanner interface (`Scan(ctx, inputs) (*imdg.Graph, error)`):
// the reference scanner ignores the input list and rescans its directory
// fresh on every call, the same way a real scanner would re-walk its own
// module graph rather than trust a stale input list.
type DirScanner struct {
	Scanner *Scanner
	Dir     string
}

// NewDirScanner returns a DirScanner rooted at dir.
func NewDirScanner(dir string) *DirScanner {
	return &DirScanner{Scanner: New(), Dir: dir}
}

// Scan implements driver.Scanner.
func (d *DirScanner) Scan(ctx context.Context, inputs []string) (*imdg.Graph, error) {
	return d.Scanner.ScanDir(ctx, d.Dir)
}

func (s *Scanner) parseDir(ctx context.Context, dir string) ([]Fixture, error) {
	var fixtures []Fixture
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".swift") && !strings.HasSuffix(path, ".swiftinterface") {
			return nil
		}
		fx, err := s.parseFile(ctx, path)
		if err != nil {
			return fmt.Errorf("scanner: %s: %w", path, err)
		}
		fixtures = append(fixtures, fx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(fixtures, func(i, j int) bool { return fixtures[i].Path < fixtures[j].Path })
	return fixtures, nil
}

func (s *Scanner) parseFile(ctx context.Context, path string) (Fixture, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, err
	}
	return s.parseSource(ctx, path, source)
}

func (s *Scanner) parseSource(ctx context.Context, path string, source []byte) (Fixture, error) {
	tree, err := s.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return Fixture{}, fmt.Errorf("parse error: %w", err)
	}
	root := tree.RootNode()

	fx := Fixture{
		Path:       path,
		IsClang:    strings.HasSuffix(path, ".modulemap.swift"),
		IsPrebuilt: strings.HasSuffix(path, ".prebuilt.swift"),
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_clause":
			fx.Name = identifierText(child, source)
		case "import_declaration":
			fx.Imports = append(fx.Imports, importSpecs(child, source)...)
		}
	}
	if fx.Name == "" {
		fx.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return fx, nil
}

func identifierText(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		c := node.NamedChild(i)
		if c.Type() == "package_identifier" || c.Type() == "identifier" {
			return c.Content(source)
		}
	}
	return ""
}

func importSpecs(node *sitter.Node, source []byte) []string {
	var out []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "interpreted_string_literal" {
			if v, err := strconv.Unquote(n.Content(source)); err == nil {
				out = append(out, v)
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(node)
	return out
}

// buildGraph converts parsed fixtures into an imdg.Graph. The main module
// is the fixture literally named "main", matching the spec's scenario
// fixtures (main.swift); if none is named "main", the first fixture in
// sorted path order is treated as main.
func buildGraph(fixtures []Fixture) (*imdg.Graph, error) {
	if len(fixtures) == 0 {
		return imdg.New(imdg.ModuleId{}), nil
	}

	byName := make(map[string]Fixture, len(fixtures))
	mainName := fixtures[0].Name
	for _, fx := range fixtures {
		byName[fx.Name] = fx
		if fx.Name == "main" {
			mainName = fx.Name
		}
	}

	mainID := imdg.ModuleId{Kind: imdg.Swift, Name: mainName}
	g := imdg.New(mainID)

	for _, fx := range fixtures {
		kind := imdg.Swift
		switch {
		case fx.IsClang:
			kind = imdg.Clang
		case fx.IsPrebuilt:
			kind = imdg.SwiftPrebuiltExternal
		}
		id := imdg.ModuleId{Kind: kind, Name: fx.Name}

		deps := make(map[imdg.ModuleId]bool, len(fx.Imports))
		for _, imp := range fx.Imports {
			depKind := imdg.Swift
			if other, ok := byName[imp]; ok && other.IsClang {
				depKind = imdg.Clang
			}
			deps[imdg.ModuleId{Kind: depKind, Name: imp}] = true
		}

		info := &ModuleInfoBuilder{ID: id, Path: fx.Path, Deps: deps}.Build()
		g.AddModule(info)
	}
	return g, nil
}

// ModuleInfoBuilder assembles an imdg.ModuleInfo for one scanned fixture,
// filling in the per-kind Details payload the IMDG's sum type requires.
type ModuleInfoBuilder struct {
	ID   imdg.ModuleId
	Path string
	Deps map[imdg.ModuleId]bool
}

// Build returns the ModuleInfo for this fixture.
func (b ModuleInfoBuilder) Build() *imdg.ModuleInfo {
	info := &imdg.ModuleInfo{
		ID:                 b.ID,
		ModulePath:         b.Path,
		SourceFiles:        []string{b.Path},
		DirectDependencies: b.Deps,
	}
	switch b.ID.Kind {
	case imdg.Clang:
		info.Details.Clang = imdg.ClangDetails{ModuleMapPath: b.Path}
	case imdg.SwiftPrebuiltExternal:
		info.Details.Prebuilt = imdg.PrebuiltDetails{}
	default:
		info.Details.Swift = imdg.SwiftDetails{InterfacePath: b.Path}
	}
	return info
}
