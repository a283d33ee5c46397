package models

import (
	"github.com/go-playground/validator/v10"
)

// Validate is the shared request validator; handlers run it on decoded DTOs
// before anything reaches a service.
var Validate = validator.New()
