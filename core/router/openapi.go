package router

import (
	"strings"

	"github.com/artpar/opgate/core/operation"
	"github.com/artpar/opgate/core/schema"
)

// Document is an OpenAPI 3.0 description of a route table.
type Document struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
}

// Info provides API metadata.
type Info struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// PathItem holds the single operation served at a path.
type PathItem struct {
	Get  *APIOperation `json:"get,omitempty"`
	Post *APIOperation `json:"post,omitempty"`
}

// APIOperation is one documented operation.
type APIOperation struct {
	OperationID string                 `json:"operationId"`
	Summary     string                 `json:"summary,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Parameters  []Parameter            `json:"parameters,omitempty"`
	RequestBody *RequestBody           `json:"requestBody,omitempty"`
	Responses   map[string]APIResponse `json:"responses"`
}

// Parameter is a query parameter.
type Parameter struct {
	Name        string      `json:"name"`
	In          string      `json:"in"`
	Description string      `json:"description,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Schema      *JSONSchema `json:"schema,omitempty"`
}

// RequestBody is a JSON request body.
type RequestBody struct {
	Required bool                 `json:"required,omitempty"`
	Content  map[string]MediaType `json:"content"`
}

// APIResponse is a documented response.
type APIResponse struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// MediaType wraps a schema.
type MediaType struct {
	Schema *JSONSchema `json:"schema,omitempty"`
}

// Components holds shared schemas.
type Components struct {
	Schemas map[string]*JSONSchema `json:"schemas,omitempty"`
}

// JSONSchema is the subset of JSON Schema the generator emits.
type JSONSchema struct {
	Type        string                 `json:"type,omitempty"`
	Format      string                 `json:"format,omitempty"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty"`
	Enum        []string               `json:"enum,omitempty"`
	Ref         string                 `json:"$ref,omitempty"`
	MinLength   *int                   `json:"minLength,omitempty"`
	MaxLength   *int                   `json:"maxLength,omitempty"`
	Minimum     *float64               `json:"minimum,omitempty"`
	Maximum     *float64               `json:"maximum,omitempty"`
	Pattern     string                 `json:"pattern,omitempty"`
	Default     any                    `json:"default,omitempty"`
}

const errorRef = "#/components/schemas/Error"

// OpenAPI documents the routes of r. Paths are prefixed with basePath.
func OpenAPI(title, version, basePath string, r *Router) Document {
	doc := Document{
		OpenAPI: "3.0.3",
		Info:    Info{Title: title, Version: version},
		Paths:   make(map[string]PathItem),
		Components: Components{Schemas: map[string]*JSONSchema{
			"Error": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"error":   {Type: "string"},
					"message": {Type: "string"},
					"type":    {Type: "string", Enum: []string{"HTTPException", "UnknownError"}},
				},
				Required: []string{"error", "message", "type"},
			},
		}},
	}

	base := strings.TrimRight(basePath, "/")
	for _, route := range r.Routes() {
		op := describeRoute(route)
		item := PathItem{}
		switch route.Kind {
		case operation.KindQuery:
			item.Get = op
		case operation.KindMutation:
			item.Post = op
		}
		doc.Paths[base+route.Path] = item
	}
	return doc
}

func describeRoute(route Route) *APIOperation {
	op := &APIOperation{
		OperationID: route.Name,
		Summary:     route.Summary,
		Responses: map[string]APIResponse{
			"200": {Description: "Operation result", Content: map[string]MediaType{
				"application/json": {Schema: &JSONSchema{}},
			}},
			"500": errorResponse("Unexpected failure"),
		},
	}
	if tag := routeTag(route.Path); tag != "" {
		op.Tags = []string{tag}
	}
	if !route.HasSchema {
		return op
	}
	op.Responses["400"] = errorResponse("Invalid input")

	var fields []schema.Field
	if d, ok := route.Operation().Schema().(schema.Describer); ok {
		fields = d.Fields()
	}

	switch route.Kind {
	case operation.KindQuery:
		for _, f := range fields {
			op.Parameters = append(op.Parameters, Parameter{
				Name:        f.Name,
				In:          "query",
				Description: f.Description,
				Required:    f.Required,
				Schema:      fieldSchema(f),
			})
		}
	case operation.KindMutation:
		body := &JSONSchema{Type: "object"}
		if len(fields) > 0 {
			body.Properties = make(map[string]*JSONSchema, len(fields))
			for _, f := range fields {
				body.Properties[f.Name] = fieldSchema(f)
				if f.Required {
					body.Required = append(body.Required, f.Name)
				}
			}
		}
		op.RequestBody = &RequestBody{
			Required: true,
			Content:  map[string]MediaType{"application/json": {Schema: body}},
		}
	}
	return op
}

func errorResponse(desc string) APIResponse {
	return APIResponse{Description: desc, Content: map[string]MediaType{
		"application/json": {Schema: &JSONSchema{Ref: errorRef}},
	}}
}

// routeTag groups mounted routes by their first path segment.
func routeTag(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

func fieldSchema(f schema.Field) *JSONSchema {
	s := &JSONSchema{Description: f.Description, Default: f.DefaultValue}

	switch f.Type {
	case schema.FieldTypeString:
		s.Type = "string"
	case schema.FieldTypeInt:
		s.Type = "integer"
	case schema.FieldTypeFloat:
		s.Type = "number"
	case schema.FieldTypeBool:
		s.Type = "boolean"
	case schema.FieldTypeEmail:
		s.Type, s.Format = "string", "email"
	case schema.FieldTypeURL:
		s.Type, s.Format = "string", "uri"
	case schema.FieldTypeUUID:
		s.Type, s.Format = "string", "uuid"
	case schema.FieldTypeEnum:
		s.Type, s.Enum = "string", f.Values
	case schema.FieldTypeStrings:
		s.Type, s.Items = "array", &JSONSchema{Type: "string"}
	}

	for _, c := range f.Constraints {
		switch c.Type {
		case schema.ConstraintMin:
			if n, ok := c.Value.(float64); ok {
				s.Minimum = &n
			}
		case schema.ConstraintMax:
			if n, ok := c.Value.(float64); ok {
				s.Maximum = &n
			}
		case schema.ConstraintMinLength:
			if n, ok := c.Value.(int); ok {
				s.MinLength = &n
			}
		case schema.ConstraintMaxLength:
			if n, ok := c.Value.(int); ok {
				s.MaxLength = &n
			}
		case schema.ConstraintPattern:
			s.Pattern, _ = c.Value.(string)
		case schema.ConstraintOneOf:
			s.Enum, _ = c.Value.([]string)
		}
	}
	return s
}
