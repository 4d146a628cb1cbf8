// Package openapi embeds the OpenAPI description of the model HTTP API.
package openapi

import _ "embed"

// APISpec is the OpenAPI 3 document served at /api/openapi.yaml.
//
//go:embed useeio-api.yaml
var APISpec []byte

// Spec returns a copy of the embedded OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), APISpec...)
}
