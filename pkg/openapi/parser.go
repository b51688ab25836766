// Package openapi loads OpenAPI 3 documents and reduces them to the
// endpoint and schema shapes the mock runtime works with.
package openapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const schemaRefPrefix = "#/components/schemas/"

// Load parses an OpenAPI document (YAML or JSON) from a file path.
func Load(path string) (*Document, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document %s: %w", path, err)
	}
	return convertDocument(doc)
}

// LoadFromData parses an OpenAPI document from raw bytes.
func LoadFromData(data []byte) (*Document, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	return convertDocument(doc)
}

func convertDocument(doc *openapi3.T) (*Document, error) {
	out := &Document{
		Schemas: make(map[string]*Schema),
	}

	if doc.Info != nil {
		out.Title = doc.Info.Title
		out.Version = doc.Info.Version
		out.Description = doc.Info.Description
	}

	if doc.Components != nil {
		for name, ref := range doc.Components.Schemas {
			out.Schemas[name] = convertSchema(ref, false)
		}
	}

	if doc.Paths != nil {
		pathMap := doc.Paths.Map()
		paths := make([]string, 0, len(pathMap))
		for p := range pathMap {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		for _, path := range paths {
			item := pathMap[path]
			ops := item.Operations()
			methods := make([]string, 0, len(ops))
			for m := range ops {
				methods = append(methods, m)
			}
			sort.Strings(methods)

			for _, method := range methods {
				op := ops[method]
				out.Endpoints = append(out.Endpoints, Endpoint{
					Path:           path,
					Method:         strings.ToUpper(method),
					OperationID:    op.OperationID,
					Summary:        op.Summary,
					Description:    op.Description,
					RequestSchema:  requestSchema(op),
					ResponseSchema: responseSchema(op),
					Parameters:     parameters(item, op),
				})
			}
		}
	}

	return out, nil
}

// responseSchema extracts the schema of the first 2xx JSON response.
func responseSchema(op *openapi3.Operation) *Schema {
	if op.Responses == nil {
		return nil
	}

	respMap := op.Responses.Map()
	codes := make([]string, 0, len(respMap))
	for code := range respMap {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		if !strings.HasPrefix(code, "2") {
			continue
		}
		ref := respMap[code]
		if ref == nil || ref.Value == nil {
			continue
		}
		if s := jsonContentSchema(ref.Value.Content); s != nil {
			return s
		}
	}
	return nil
}

func requestSchema(op *openapi3.Operation) *Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	return jsonContentSchema(op.RequestBody.Value.Content)
}

func jsonContentSchema(content openapi3.Content) *Schema {
	for contentType, mediaType := range content {
		if !strings.Contains(strings.ToLower(contentType), "json") {
			continue
		}
		if mediaType.Schema != nil {
			return convertSchema(mediaType.Schema, true)
		}
	}
	return nil
}

func parameters(item *openapi3.PathItem, op *openapi3.Operation) []Parameter {
	var params []Parameter

	convert := func(refs openapi3.Parameters) {
		for _, ref := range refs {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := ref.Value
			var schema *Schema
			if p.Schema != nil {
				schema = convertSchema(p.Schema, true)
			}
			params = append(params, Parameter{
				Name:     p.Name,
				In:       p.In,
				Required: p.Required,
				Schema:   schema,
			})
		}
	}

	convert(item.Parameters)
	convert(op.Parameters)
	return params
}

// convertSchema maps a kin-openapi schema to the runtime's Schema type.
// References are kept as name stubs resolved later through the document
// schema table, which also keeps recursive schemas from looping here.
// When asRef is true a referenced schema becomes a pure stub; component
// definitions themselves (asRef false) are converted in full.
func convertSchema(ref *openapi3.SchemaRef, asRef bool) *Schema {
	if ref == nil {
		return nil
	}

	if asRef && ref.Ref != "" {
		return &Schema{Ref: strings.TrimPrefix(ref.Ref, schemaRefPrefix)}
	}

	src := ref.Value
	if src == nil {
		return nil
	}

	out := &Schema{
		Format:   src.Format,
		Required: append([]string(nil), src.Required...),
		Enum:     append([]any(nil), src.Enum...),
	}

	if src.Type != nil && len(src.Type.Slice()) > 0 {
		out.Type = src.Type.Slice()[0]
	}

	if src.MinLength > 0 {
		v := int(src.MinLength)
		out.MinLength = &v
	}
	if src.MaxLength != nil {
		v := int(*src.MaxLength)
		out.MaxLength = &v
	}
	if src.Min != nil {
		v := *src.Min
		out.Minimum = &v
	}
	if src.Max != nil {
		v := *src.Max
		out.Maximum = &v
	}

	if len(src.Properties) > 0 {
		out.Properties = make(map[string]*Schema, len(src.Properties))
		for name, prop := range src.Properties {
			out.Properties[name] = convertSchema(prop, true)
		}
	}
	if src.Items != nil {
		out.Items = convertSchema(src.Items, true)
	}

	return out
}
