// Package v1beta1 contains the v1beta1 API types for agentrules configuration.
package v1beta1

import (
	"fmt"

	"github.com/invopop/jsonschema"
)

// APIVersion is the current API version for all configuration kinds.
const APIVersion = "agentrules.jacobcolvin.com/v1beta1"

// ValidAPIVersions contains all valid API versions.
var ValidAPIVersions = []string{APIVersion}

// TypeMeta contains the API version and kind metadata common to all config types.
type TypeMeta struct {
	// APIVersion specifies the API version for this configuration.
	APIVersion string `json:"apiVersion" jsonschema:"title=API Version"`
	// Kind defines the type of configuration.
	Kind string `json:"kind" jsonschema:"title=Kind"`
}

// GetAPIVersion returns the API version.
func (tm TypeMeta) GetAPIVersion() string {
	return tm.APIVersion
}

// GetKind returns the kind.
func (tm TypeMeta) GetKind() string {
	return tm.Kind
}

// Object is the interface that all config types implement.
type Object interface {
	GetAPIVersion() string
	GetKind() string
	EnsureDefaults()
}

// ExtendSchemaWithEnums restricts the apiVersion and kind properties of a
// JSON schema to the given values. It panics if either property is missing,
// since that means the type does not embed [TypeMeta].
func ExtendSchemaWithEnums(jss *jsonschema.Schema, apiVersions, kinds []string) {
	restrict(jss, "apiVersion", apiVersions)
	restrict(jss, "kind", kinds)
}

func restrict(jss *jsonschema.Schema, property string, values []string) {
	prop, ok := jss.Properties.Get(property)
	if !ok {
		panic(fmt.Sprintf("%s property not found in schema", property))
	}

	prop.Enum = make([]any, 0, len(values))
	for _, v := range values {
		prop.Enum = append(prop.Enum, v)
	}

	jss.Properties.Set(property, prop)
}
