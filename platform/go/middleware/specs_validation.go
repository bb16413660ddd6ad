package middleware

import (
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
)

// NewSpecValidator compiles the embedded OpenAPI document and builds request
// validation middleware, so malformed payloads are rejected before reaching the
// handlers. The contract declares no security schemes; auth is not this layer's
// concern.
func NewSpecValidator(contract []byte) (func(http.Handler) http.Handler, error) {
	loader := openapi3.NewLoader()

	spec, err := loader.LoadFromData(contract)
	if err != nil {
		return nil, fmt.Errorf("load openapi contract: %w", err)
	}

	if err := spec.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi contract: %w", err)
	}

	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			ExcludeResponseBody: true,
		},
	}), nil
}
