// Package houndschema is a reference schema-file parser. It has no
// dependency on the core package: it turns a YAML schema file into plain,
// string-typed descriptors, leaving enum validation (unit/type against
// the closed sets the core owns) to whoever calls it. That split is what
// lets the core import this package directly without a cycle, even
// though the core is also the thing schema files ultimately describe.
package houndschema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Format mirrors one entry of a schema document's "fmt" list.
type Format struct {
	Name string
	Unit string
	Type string
	Size uint32
}

// Descriptor mirrors one YAML document in a schema file:
//
//	id: <uint32>
//	name: <string>
//	fmt:
//	  - { name, unit, type, size }
type Descriptor struct {
	DataID  uint32
	Name    string
	Formats []Format
}

type doc struct {
	ID   uint32 `yaml:"id"`
	Name string `yaml:"name"`
	Fmt  []struct {
		Name string `yaml:"name"`
		Unit string `yaml:"unit"`
		Type string `yaml:"type"`
		Size uint32 `yaml:"size"`
	} `yaml:"fmt"`
}

// Load reads a YAML stream of schema documents from path.
func Load(path string) ([]Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses every document from r.
func Decode(r io.Reader) ([]Descriptor, error) {
	dec := yaml.NewDecoder(r)
	var out []Descriptor
	for {
		var d doc
		err := dec.Decode(&d)
		if err != nil {
			if err == io.EOF {
				break
			}
			return out, fmt.Errorf("decode schema document %d: %w", len(out), err)
		}
		out = append(out, convert(d))
	}
	return out, nil
}

func convert(d doc) Descriptor {
	formats := make([]Format, 0, len(d.Fmt))
	for _, f := range d.Fmt {
		formats = append(formats, Format{Name: f.Name, Unit: f.Unit, Type: f.Type, Size: f.Size})
	}
	return Descriptor{DataID: d.ID, Name: d.Name, Formats: formats}
}
