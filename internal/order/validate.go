package order

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	validatorv10 "github.com/go-playground/validator/v10"
)

const maxCreateBody = 1 << 20

// ValidationError reports client input that cannot be stored. It is
// returned before the store is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type orderKey struct {
	UserID string            `validate:"required,max=256"`
	Items  []json.RawMessage `validate:"required"`
}

var validate = validatorv10.New(validatorv10.WithRequiredStructEnabled())

// decodeOrder reads the request body and returns the user id it is keyed by
// together with the body itself, which is stored as-is.
func decodeOrder(w http.ResponseWriter, r *http.Request) (string, json.RawMessage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCreateBody)
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return "", nil, &ValidationError{Field: "body", Reason: "too large"}
		}
		return "", nil, &ValidationError{Field: "body", Reason: "unreadable"}
	}

	return parseOrder(body)
}

func parseOrder(body []byte) (string, json.RawMessage, error) {
	if !utf8.Valid(body) {
		return "", nil, &ValidationError{Field: "body", Reason: "invalid utf-8"}
	}

	dec := json.NewDecoder(bytes.NewReader(body))

	var doc json.RawMessage
	if err := dec.Decode(&doc); err != nil {
		return "", nil, &ValidationError{Field: "body", Reason: "malformed json"}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return "", nil, &ValidationError{Field: "body", Reason: "extra data after json object"}
	}

	// Top-level keys are matched exactly. Decoding into a struct would
	// match them case-insensitively.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil || fields == nil {
		return "", nil, &ValidationError{Field: "body", Reason: "must be a json object"}
	}

	// camelCase wins over snake_case when both are sent.
	var key orderKey
	if raw := firstPresent(fields["userId"], fields["user_id"]); raw != nil {
		if err := json.Unmarshal(raw, &key.UserID); err != nil {
			return "", nil, &ValidationError{Field: "userId", Reason: "must be a string"}
		}
	}
	if raw := firstPresent(fields["cart"], fields["items"]); raw != nil {
		if err := json.Unmarshal(raw, &key.Items); err != nil {
			return "", nil, &ValidationError{Field: "cart", Reason: "must be an array"}
		}
	}

	if err := validate.Struct(key); err != nil {
		return "", nil, toValidationError(err)
	}

	return key.UserID, doc, nil
}

func firstPresent(vals ...json.RawMessage) json.RawMessage {
	for _, v := range vals {
		if len(v) > 0 && !bytes.Equal(v, []byte("null")) {
			return v
		}
	}
	return nil
}

func toValidationError(err error) error {
	var fieldErrs validatorv10.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "body", Reason: err.Error()}
	}

	fe := fieldErrs[0]
	field := "userId"
	if fe.Field() == "Items" {
		field = "cart"
	}

	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Reason: "required"}
	case "max":
		return &ValidationError{Field: field, Reason: "at most " + fe.Param() + " characters"}
	default:
		return &ValidationError{Field: field, Reason: fe.Tag()}
	}
}
