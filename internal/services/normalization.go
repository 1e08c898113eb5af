package services

import (
	"regexp"
	"strings"
)

// FormPayload is the decoded body of a website lead form
type FormPayload map[string]interface{}

// formFieldAliases maps the field names used by the different site forms onto one key
var formFieldAliases = map[string]string{
	"e-mail":         "email",
	"mail":           "email",
	"phone_number":   "phone",
	"telephone":      "phone",
	"mobile":         "phone",
	"celular":        "phone",
	"telefone":       "phone",
	"full_name":      "name",
	"nome":           "name",
	"origin":         "source",
	"utm_source":     "source",
	"vehicle_model":  "model",
	"modelo":         "model",
	"version":        "trim",
	"cor":            "color",
	"salesperson_id": "sales_person_id",
	"seller_id":      "sales_person_id",
	"mensagem":       "message",
	"comments":       "message",
}

// Normalizer cleans up form payloads before validation
type Normalizer struct {
	phonePattern      *regexp.Regexp
	whitespacePattern *regexp.Regexp
}

// NewNormalizer creates a new Normalizer instance
func NewNormalizer() *Normalizer {
	return &Normalizer{
		phonePattern:      regexp.MustCompile(`\d+`),
		whitespacePattern: regexp.MustCompile(`\s+`),
	}
}

// NormalizeForm canonicalizes keys and cleans every value of a form payload.
// When a canonical key and one of its aliases are both present the canonical key wins.
func (n *Normalizer) NormalizeForm(raw FormPayload) FormPayload {
	normalized := make(FormPayload, len(raw))

	for key, value := range raw {
		canonical := n.canonicalKey(key)
		if _, taken := normalized[canonical]; taken && canonical != strings.ToLower(strings.TrimSpace(key)) {
			continue
		}
		normalized[canonical] = n.normalizeField(canonical, value)
	}

	return normalized
}

func (n *Normalizer) canonicalKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if canonical, ok := formFieldAliases[key]; ok {
		return canonical
	}
	return key
}

func (n *Normalizer) normalizeField(key string, value interface{}) interface{} {
	switch key {
	case "email":
		if email, ok := value.(string); ok {
			return n.NormalizeEmail(email)
		}
	case "phone":
		if phone, ok := value.(string); ok {
			return n.NormalizePhone(phone)
		}
	case "test_drive", "wants_test_drive":
		return n.NormalizeBooleanString(value)
	}
	return n.normalizeValue(value)
}

// normalizeValue normalizes a single value based on its type
func (n *Normalizer) normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return n.normalizeString(v)
	case map[string]interface{}:
		normalized := make(map[string]interface{}, len(v))
		for key, val := range v {
			normalized[key] = n.normalizeValue(val)
		}
		return normalized
	case []interface{}:
		normalized := make([]interface{}, len(v))
		for i, val := range v {
			normalized[i] = n.normalizeValue(val)
		}
		return normalized
	default:
		// numbers and booleans pass through
		return value
	}
}

// normalizeString trims and collapses runs of whitespace into one space
func (n *Normalizer) normalizeString(s string) string {
	return n.whitespacePattern.ReplaceAllString(strings.TrimSpace(s), " ")
}

// NormalizeEmail lower-cases and trims an e-mail address
func (n *Normalizer) NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps only the digits of a phone number.
// A leading "+" country prefix is dropped along with the formatting.
func (n *Normalizer) NormalizePhone(phone string) string {
	return strings.Join(n.phonePattern.FindAllString(phone, -1), "")
}

// NormalizeBooleanString converts string representations of booleans to actual booleans.
// Handles "true", "false", "1", "0", "yes", "no", "sim", "nao".
func (n *Normalizer) NormalizeBooleanString(value interface{}) interface{} {
	if b, ok := value.(bool); ok {
		return b
	}

	if s, ok := value.(string); ok {
		switch strings.TrimSpace(strings.ToLower(s)) {
		case "true", "1", "yes", "y", "sim", "s":
			return true
		case "false", "0", "no", "n", "nao", "não":
			return false
		default:
			return value
		}
	}

	return value
}

// TrimString trims whitespace from a string
func (n *Normalizer) TrimString(s string) string {
	return strings.TrimSpace(s)
}
