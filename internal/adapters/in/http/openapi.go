package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/swaggo/swag"
)

//go:embed openapi.json
var openAPIDocument []byte

const importRequestSchema = "ImportOrdersRequest"

// ErrPayloadInvalid wraps schema violations of a request body.
var ErrPayloadInvalid = errors.New("request payload is invalid")

// OpenAPI holds the parsed API document and validates request bodies against it.
type OpenAPI struct {
	doc *openapi3.T
	raw []byte
}

// LoadOpenAPI parses and validates the embedded API document.
func LoadOpenAPI(ctx context.Context) (*OpenAPI, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err = doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	if _, ok := doc.Components.Schemas[importRequestSchema]; !ok {
		return nil, fmt.Errorf("openapi document has no %s schema", importRequestSchema)
	}

	registerSwagger(openAPIDocument)
	return &OpenAPI{doc: doc, raw: openAPIDocument}, nil
}

// Document returns the raw JSON document served at /api/openapi.json.
func (o *OpenAPI) Document() []byte {
	return o.raw
}

// ValidateImportRequest checks a decoded import-json body against its schema.
// Every violation is reported, joined into one error wrapping ErrPayloadInvalid.
func (o *OpenAPI) ValidateImportRequest(body []byte) error {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("%w: body is not valid JSON", ErrPayloadInvalid)
	}

	schema := o.doc.Components.Schemas[importRequestSchema].Value
	err := schema.VisitJSON(value, openapi3.MultiErrors())
	if err == nil {
		return nil
	}

	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		messages := make([]string, 0, len(multi))
		for _, e := range multi {
			messages = append(messages, violation(e))
		}
		return fmt.Errorf("%w: %s", ErrPayloadInvalid, strings.Join(messages, "; "))
	}
	return fmt.Errorf("%w: %s", ErrPayloadInvalid, violation(err))
}

// violation renders a schema error as "field: reason".
func violation(err error) string {
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		field := strings.Join(schemaErr.JSONPointer(), ".")
		if field == "" {
			return schemaErr.Reason
		}
		return field + ": " + schemaErr.Reason
	}
	return err.Error()
}

type swaggerDoc []byte

func (d swaggerDoc) ReadDoc() string {
	return string(d)
}

var swaggerOnce sync.Once

// registerSwagger publishes the document to the swag registry read by echo-swagger.
func registerSwagger(doc []byte) {
	swaggerOnce.Do(func() {
		swag.Register(swag.Name, swaggerDoc(doc))
	})
}
