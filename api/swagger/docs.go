// Package swagger registers the HTTP API description served at
// /swagger/doc.json.
package swagger

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed openapi.json
var openAPI string

type doc struct{}

func (doc) ReadDoc() string { return openAPI }

func init() {
	swag.Register(swag.Name, doc{})
}
