// Package openapi embeds the HTTP API description.
package openapi

import _ "embed"

// Document is the OpenAPI 3 description served at /api/openapi.yaml.
//
//go:embed openapi.yaml
var Document []byte
