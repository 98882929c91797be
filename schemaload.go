package hound

import (
	"fmt"

	"hound/internal/houndschema"
)

// loadSchemaFile reads a schema file via the reference houndschema parser
// and resolves its string-typed unit/type fields against this package's
// closed enums. houndschema itself knows nothing about hound's types —
// this is the one place that conversion happens, so the core can import
// the parser directly without the parser needing to import the core back.
func loadSchemaFile(path string) ([]SchemaDescriptor, error) {
	descs, err := houndschema.Load(path)
	if err != nil {
		return nil, err
	}
	out := make([]SchemaDescriptor, 0, len(descs))
	for _, d := range descs {
		sd, err := convertSchemaDescriptor(d)
		if err != nil {
			return nil, err
		}
		out = append(out, sd)
	}
	return out, nil
}

func convertSchemaDescriptor(d houndschema.Descriptor) (SchemaDescriptor, error) {
	formats := make([]DataFormat, 0, len(d.Formats))
	offset := uint32(0)
	for _, f := range d.Formats {
		unit, ok := UnitFromString(f.Unit)
		if !ok {
			return SchemaDescriptor{}, fmt.Errorf("schema %q: unknown unit %q", d.Name, f.Unit)
		}
		typ, ok := TypeFromString(f.Type)
		if !ok {
			return SchemaDescriptor{}, fmt.Errorf("schema %q: unknown type %q", d.Name, f.Type)
		}
		formats = append(formats, DataFormat{
			Name:   f.Name,
			Unit:   unit,
			Offset: offset,
			Length: f.Size,
			Type:   typ,
		})
		offset += f.Size
	}
	return SchemaDescriptor{
		DataID:  DataID(d.DataID),
		Name:    d.Name,
		Formats: formats,
	}, nil
}
