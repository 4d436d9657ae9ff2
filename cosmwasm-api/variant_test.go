package cosmwasmapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseErrorResponse(t *testing.T) {
	testCases := []struct {
		name string
		data string
		kind string
		msg  string
		ok   bool
	}{
		{"generic err", `{"generic_err":{"msg":"boom"}}`, "generic_err", "boom", true},
		{"plain err", `{"err":"boom"}`, "err", "boom", true},
		{"unauthorized", `{"unauthorized":{}}`, "unauthorized", "{}", true},
		{"padded", `  {"not_found":{"kind":"token"}}  `, "not_found", `{"kind":"token"}`, true},
		{"viewing key", `{"viewing_key_error":{"error":"Wrong viewing key for this address or viewing key not set"}}`, "viewing_key_error", "Wrong viewing key for this address or viewing key not set", true},
		{"error field", `{"generic_err":{"error":"boom"}}`, "generic_err", "boom", true},
		{"payload", `{"nft_info":{"token_uri":null}}`, "", "", false},
		{"two keys", `{"err":"boom","other":1}`, "", "", false},
		{"array", `["err"]`, "", "", false},
		{"empty", ``, "", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, ok := ParseErrorResponse([]byte(tc.data))
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.kind, resp.Kind)
				assert.Equal(t, tc.msg, resp.Msg)
			}
		})
	}
}

func TestValidateVariant(t *testing.T) {
	type plain struct {
		Name string
	}

	assert.NoError(t, ValidateVariant(QueryMsg{Name: &struct{}{}}))
	assert.NoError(t, ValidateVariant(&QueryMsg{Name: &struct{}{}}))
	assert.ErrorIs(t, ValidateVariant(QueryMsg{}), ErrNoVariant)
	assert.ErrorIs(t, ValidateVariant(QueryMsg{Name: &struct{}{}, Broken: &struct{}{}}), ErrMultipleVariants)
	assert.NoError(t, ValidateVariant(plain{}))
	assert.NoError(t, ValidateVariant(map[string]int{}))
	assert.Error(t, ValidateVariant(nil))
	assert.Error(t, ValidateVariant((*QueryMsg)(nil)))
}
