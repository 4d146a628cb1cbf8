package openapi

import (
	"bytes"
	"os"
	"sort"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestSpecReturnsCopyAndMatchesFile(t *testing.T) {
	want, err := os.ReadFile("useeio-api.yaml")
	if err != nil {
		t.Fatalf("read useeio-api.yaml: %v", err)
	}

	spec := Spec()
	if !bytes.Equal(spec, want) {
		t.Fatalf("Spec does not match embedded OpenAPI contents")
	}
	spec[0] ^= 0xFF
	if bytes.Equal(spec, APISpec) {
		t.Fatalf("Spec did not return a copy")
	}
	if !bytes.Equal(Spec(), want) {
		t.Fatalf("Spec mutation leaked into embedded content")
	}
}

func TestSpecDocumentsEveryRoute(t *testing.T) {
	var doc struct {
		OpenAPI string                    `yaml:"openapi"`
		Paths   map[string]map[string]any `yaml:"paths"`
	}
	if err := yaml.Unmarshal(APISpec, &doc); err != nil {
		t.Fatalf("parse spec: %v", err)
	}
	if doc.OpenAPI == "" {
		t.Fatalf("missing openapi version")
	}
	want := map[string]string{
		"/healthz":                     "get",
		"/api/models":                  "get",
		"/api/openapi.yaml":            "get",
		"/api/{model}/sectors":         "get",
		"/api/{model}/sectors/{id}":    "get",
		"/api/{model}/flows":           "get",
		"/api/{model}/flows/{id}":      "get",
		"/api/{model}/indicators":      "get",
		"/api/{model}/indicators/{id}": "get",
		"/api/{model}/demands":         "get",
		"/api/{model}/demands/{id}":    "get",
		"/api/{model}/calculate":       "post",
		"/api/{model}/matrix/{name}":   "get",
	}
	var got []string
	for path := range doc.Paths {
		got = append(got, path)
	}
	sort.Strings(got)
	if len(got) != len(want) {
		t.Fatalf("documented paths = %v, want %d entries", got, len(want))
	}
	for path, method := range want {
		ops, ok := doc.Paths[path]
		if !ok {
			t.Fatalf("path %s not documented", path)
		}
		if _, ok := ops[method]; !ok {
			t.Fatalf("path %s lacks %s operation", path, method)
		}
	}
}
