package managecatalogproduct

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var productSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"title"},
	"properties": map[string]interface{}{
		"id":            map[string]interface{}{"type": "string"},
		"title":         map[string]interface{}{"type": "string", "minLength": 1, "pattern": "\\S"},
		"price":         map[string]interface{}{"type": []interface{}{"number", "null"}, "minimum": 0},
		"imageUrl":      map[string]interface{}{"type": []interface{}{"string", "null"}},
		"instructor":    map[string]interface{}{"type": []interface{}{"string", "null"}},
		"description":   map[string]interface{}{"type": []interface{}{"string", "null"}},
		"category":      map[string]interface{}{"type": []interface{}{"string", "null"}},
		"brand":         map[string]interface{}{"type": []interface{}{"string", "null"}},
		"createdAt":     map[string]interface{}{"type": []interface{}{"string", "null"}, "format": "date-time"},
		"viewCount":     map[string]interface{}{"type": []interface{}{"integer", "null"}, "minimum": 0},
		"purchaseCount": map[string]interface{}{"type": []interface{}{"integer", "null"}, "minimum": 0},
		"rating":        map[string]interface{}{"type": []interface{}{"number", "null"}, "minimum": 0, "maximum": 5},
	},
}

var compiledSchema = mustCompile(productSchema)

func mustCompile(schema map[string]interface{}) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("compile product schema: %v", err))
	}
	return s
}

// ValidateProduct checks a raw product payload and returns every violation
// joined into one message.
func ValidateProduct(raw []byte) error {
	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}
