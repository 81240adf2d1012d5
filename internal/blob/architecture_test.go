package blob

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

func loadModulePackages(t *testing.T) []*packages.Package {
	t.Helper()
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "proteincore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	return pkgs
}

func reportViolations(t *testing.T, seen map[string]struct{}, what string) {
	t.Helper()
	if len(seen) == 0 {
		return
	}
	violations := make([]string, 0, len(seen))
	for v := range seen {
		violations = append(violations, v)
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("forbidden import of %s: %s", what, v)
	}
	t.Fatalf("found %d forbidden imports of %s", len(violations), what)
}

// TestOnlyBlobPackageImportsInfra ensures that only the top-level blob
// package wraps the infra-backed implementations. Other packages must depend
// on the blob.Store interface instead of importing infra packages directly.
func TestOnlyBlobPackageImportsInfra(t *testing.T) {
	infraPrefix := "proteincore/internal/infra/blob"
	allowedPrefix := "proteincore/internal/blob"

	seen := make(map[string]struct{})
	for _, pkg := range loadModulePackages(t) {
		if strings.HasPrefix(pkg.PkgPath, allowedPrefix) || strings.HasPrefix(pkg.PkgPath, infraPrefix) {
			continue
		}
		for importPath := range pkg.Imports {
			if isPrefixedImport(importPath, infraPrefix) {
				seen[pkg.PkgPath+": "+importPath] = struct{}{}
			}
		}
	}
	reportViolations(t, seen, "infra blob package")
}

// TestOnlyCoreSelectsPersistenceBackends keeps the storage driver choice in
// one place: everything else goes through the domain.PersistentStore
// interface handed out by core.
func TestOnlyCoreSelectsPersistenceBackends(t *testing.T) {
	infraPrefix := "proteincore/internal/infra/persistence"
	allowedPrefixes := []string{"proteincore/internal/core", infraPrefix}

	seen := make(map[string]struct{})
	for _, pkg := range loadModulePackages(t) {
		allowed := false
		for _, prefix := range allowedPrefixes {
			if strings.HasPrefix(pkg.PkgPath, prefix) {
				allowed = true
				break
			}
		}
		if allowed {
			continue
		}
		for importPath := range pkg.Imports {
			if isPrefixedImport(importPath, infraPrefix) {
				seen[pkg.PkgPath+": "+importPath] = struct{}{}
			}
		}
	}
	reportViolations(t, seen, "persistence backend package")
}

// TestPublicPackagesStayFreestanding keeps pkg/ importable by external
// consumers: nothing under pkg/ may reach back into internal/.
func TestPublicPackagesStayFreestanding(t *testing.T) {
	seen := make(map[string]struct{})
	for _, pkg := range loadModulePackages(t) {
		if !strings.HasPrefix(pkg.PkgPath, "proteincore/pkg") {
			continue
		}
		for importPath := range pkg.Imports {
			if isPrefixedImport(importPath, "proteincore/internal") {
				seen[pkg.PkgPath+": "+importPath] = struct{}{}
			}
		}
	}
	reportViolations(t, seen, "internal package from pkg/")
}

func isPrefixedImport(importPath, prefix string) bool {
	return importPath == prefix || strings.HasPrefix(importPath, prefix+"/")
}
