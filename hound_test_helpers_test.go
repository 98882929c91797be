package hound_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hound"
)

// writeSchemaFile renders descs in the on-disk YAML schema format and
// returns the path of the file it wrote, so tests can drive InitDriver's
// real schemaBaseDir/schemaFile arguments instead of a pre-built slice.
func writeSchemaFile(t *testing.T, descs []hound.SchemaDescriptor) string {
	t.Helper()
	var b strings.Builder
	for i, d := range descs {
		if i > 0 {
			b.WriteString("---\n")
		}
		fmt.Fprintf(&b, "id: %d\nname: %s\nfmt:\n", d.DataID, d.Name)
		for _, f := range d.Formats {
			fmt.Fprintf(&b, "  - name: %s\n    unit: %s\n    type: %s\n    size: %d\n",
				f.Name, f.Unit.String(), f.Type.String(), f.Length)
		}
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
