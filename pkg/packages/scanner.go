// Package packages discovers build package descriptors (package.xml
// files) in a directory tree. It is used only for presence auditing:
// the reconciliation driver compares discovered package names against
// the names declared in release metadata.
package packages

import (
	"encoding/xml"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rkent/distroclone/pkg/errors"
)

// DescriptorName is the package descriptor file looked for in the tree.
const DescriptorName = "package.xml"

// ignoreMarkers stop descent into a directory, matching the catkin and
// colcon crawl conventions.
var ignoreMarkers = []string{"CATKIN_IGNORE", "AMENT_IGNORE", "COLCON_IGNORE"}

// Package is a descriptor found on disk. The same name may be found at
// several paths; audits count names once.
type Package struct {
	Name string
	Path string
}

// descriptor is the subset of the package.xml format the audit needs.
type descriptor struct {
	XMLName xml.Name `xml:"package"`
	Name    string   `xml:"name"`
}

// Find walks root and returns every parseable package descriptor, in
// walk order. Subtrees listed in excludes, hidden directories, .git
// directories, and directories carrying an ignore marker are skipped.
// Descriptors whose name cannot be parsed are skipped rather than
// failing the audit.
func Find(root string, excludes ...string) ([]Package, error) {
	excluded := make(map[string]struct{}, len(excludes))
	for _, e := range excludes {
		excluded[filepath.Clean(e)] = struct{}{}
	}

	var found []Package
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && shouldSkipDir(path, d.Name(), excluded) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != DescriptorName {
			return nil
		}
		name, ok := parseDescriptor(path)
		if !ok {
			return nil
		}
		found = append(found, Package{Name: name, Path: filepath.Dir(path)})
		return nil
	})
	if err != nil {
		return nil, errors.WrapIO("scan", root, err)
	}
	return found, nil
}

// Names returns the distinct package names in pkgs.
func Names(pkgs []Package) map[string]struct{} {
	names := make(map[string]struct{}, len(pkgs))
	for _, p := range pkgs {
		names[p.Name] = struct{}{}
	}
	return names
}

func shouldSkipDir(path, name string, excluded map[string]struct{}) bool {
	if _, ok := excluded[filepath.Clean(path)]; ok {
		return true
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, marker := range ignoreMarkers {
		if _, err := os.Stat(filepath.Join(path, marker)); err == nil {
			return true
		}
	}
	return false
}

func parseDescriptor(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	var desc descriptor
	if err := xml.Unmarshal(data, &desc); err != nil {
		return "", false
	}
	name := strings.TrimSpace(desc.Name)
	return name, name != ""
}
