package openapi

// Schema is the subset of OpenAPI schema information the mock runtime
// understands: primitive kinds, a few string formats, and the basic
// constraints used for request validation and data generation.
type Schema struct {
	// Type is one of string, integer, number, boolean, array, object.
	Type string
	// Format is an optional string format hint (email, uuid, date, ...).
	Format string
	// Ref holds the component schema name when this schema is a $ref.
	Ref string
	// Properties maps field names to their schemas (object type).
	Properties map[string]*Schema
	// Items is the element schema (array type).
	Items *Schema
	// Required lists field names that must be present and non-null.
	Required []string

	MinLength *int
	MaxLength *int
	Minimum   *float64
	Maximum   *float64

	// Enum restricts the value to one of the listed values.
	Enum []any
}

// Parameter describes one declared endpoint parameter.
type Parameter struct {
	Name     string
	In       string
	Required bool
	Schema   *Schema
}

// Endpoint describes one operation extracted from the API document.
type Endpoint struct {
	Path        string
	Method      string
	OperationID string
	Summary     string
	Description string

	RequestSchema  *Schema
	ResponseSchema *Schema
	Parameters     []Parameter
}

// Document is the parsed API description the server is built from.
type Document struct {
	Title       string
	Version     string
	Description string
	Endpoints   []Endpoint
	Schemas     map[string]*Schema
}

// Resolve follows a $ref indirection through the document schema table.
// Schemas without a reference (or with an unknown one) are returned as-is.
func (d *Document) Resolve(s *Schema) *Schema {
	if s == nil {
		return nil
	}
	if s.Ref != "" {
		if resolved, ok := d.Schemas[s.Ref]; ok {
			return resolved
		}
	}
	return s
}

// ItemSchema returns the schema describing a single collection item for an
// endpoint: the resolved items schema for array responses, otherwise the
// resolved response schema itself.
func (d *Document) ItemSchema(ep *Endpoint) *Schema {
	if ep.ResponseSchema == nil {
		return nil
	}
	resolved := d.Resolve(ep.ResponseSchema)
	if resolved != nil && resolved.Type == "array" && resolved.Items != nil {
		return d.Resolve(resolved.Items)
	}
	return resolved
}
