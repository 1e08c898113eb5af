package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: any form with a name, a well-formed e-mail and a phone of 10 to 11 digits is
// captured with 201 and a fresh lead id.
func TestProperty_WebhookAcceptsWellFormedForms(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	h := newAPIHarness(t, nil)

	properties.Property("well-formed forms are captured", prop.ForAll(
		func(user string, ddd int, number int) bool {
			form := map[string]interface{}{
				"name":  "Cliente " + user,
				"email": user + "@example.com",
				"phone": fmt.Sprintf("(%02d) 9%08d", ddd, number),
			}
			rr := h.do(t, nil, http.MethodPost, "/webhooks/leads", form)
			if rr.Code != http.StatusCreated {
				t.Logf("form %v: %d %s", form, rr.Code, rr.Body.String())
				return false
			}
			id, ok := decodeBody(t, rr)["lead_id"].(string)
			return ok && id != ""
		},
		gen.Identifier(),
		gen.IntRange(11, 99),
		gen.IntRange(0, 99999999),
	))

	properties.TestingRun(t)
}

// Property: an e-mail without an @ is always rejected with 400 naming the email field
func TestProperty_WebhookRejectsInvalidEmails(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	h := newAPIHarness(t, nil)

	properties.Property("e-mails without @ are rejected", prop.ForAll(
		func(local string) bool {
			form := map[string]interface{}{
				"name":  "Cliente",
				"email": local + ".example.com",
				"phone": "11987654321",
			}
			rr := h.do(t, nil, http.MethodPost, "/webhooks/leads", form)
			if rr.Code != http.StatusBadRequest {
				return false
			}
			return decodeBody(t, rr)["field"] == "email"
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
