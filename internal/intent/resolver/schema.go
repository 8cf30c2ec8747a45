// internal/intent/resolver/schema.go
package resolver

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"invoicing-dashboard/internal/intent"
)

// Compiled once from the catalog; the catalog is static so a bad schema is
// a programming error caught at process start.
var paramSchemas = mustCompileSchemas()

func mustCompileSchemas() map[intent.Name]*gojsonschema.Schema {
	schemas := make(map[intent.Name]*gojsonschema.Schema, len(intent.Catalog()))
	for _, def := range intent.Catalog() {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(def.Schema))
		if err != nil {
			panic(fmt.Sprintf("invalid param schema for intent %s: %v", def.Name, err))
		}
		schemas[def.Name] = schema
	}
	return schemas
}

// paramsMatchSchema checks the classifier's raw params against the intent's
// declared schema. A nil params map is treated as an empty object.
func paramsMatchSchema(name intent.Name, params map[string]interface{}) bool {
	schema, ok := paramSchemas[name]
	if !ok {
		return false
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return false
	}
	return result.Valid()
}
