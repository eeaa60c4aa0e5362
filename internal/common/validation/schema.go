// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// applicationMessageSchema describes the flat record published to the stream.
// It guards against generator regressions drifting from the contract the
// downstream fraud-analytics pipeline consumes.
const applicationMessageSchema = `{
	"type": "object",
	"required": [
		"loan_id", "customer_id", "application_timestamp", "loan_amount",
		"customer_age", "credit_score", "annual_income", "employment_length",
		"debt_to_income", "num_previous_loans", "device_fingerprint",
		"ip_address", "application_channel", "is_fraud", "created_at", "updated_at"
	],
	"properties": {
		"loan_id":               {"type": "string", "pattern": "^LOAN_[0-9A-F]{8}$"},
		"customer_id":           {"type": "string", "pattern": "^CUST_[0-9A-F]{8}$"},
		"application_timestamp": {"type": "string"},
		"loan_amount":           {"type": "number", "minimum": 0},
		"customer_age":          {"type": "integer", "minimum": 18, "maximum": 100},
		"credit_score":          {"type": "integer", "minimum": 300, "maximum": 850},
		"annual_income":         {"type": "number", "minimum": 0},
		"employment_length":     {"type": "number", "minimum": 0},
		"debt_to_income":        {"type": "number", "minimum": 0},
		"num_previous_loans":    {"type": "integer", "minimum": 0},
		"device_fingerprint":    {"type": "string", "pattern": "^DEV_[0-9]{4}$"},
		"ip_address":            {"type": "string"},
		"application_channel":   {"type": "string", "enum": ["mobile_app", "web", "call_center"]},
		"is_fraud":              {"type": "boolean"},
		"created_at":            {"type": "string"},
		"updated_at":            {"type": "string"}
	},
	"additionalProperties": false
}`

var messageSchemaLoader = gojsonschema.NewStringLoader(applicationMessageSchema)

// ValidateApplicationMessage validates a serialized loan application against
// the stream message schema.
func ValidateApplicationMessage(payload []byte) error {
	documentLoader := gojsonschema.NewBytesLoader(payload)

	result, err := gojsonschema.Validate(messageSchemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("message validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
