package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "sk_live_****7890", MaskSecret("sk_live_1234567890"))
}

func TestMaskMetadata(t *testing.T) {
	got := MaskMetadata(map[string]any{
		"comparison_rule": "tape",
		"session_token":   "tok_abcdefgh",
		" ":               "dropped",
		"nested": map[string]any{
			"api_secret": "s_12345678",
			"passed":     true,
		},
	})

	assert.Equal(t, "tape", got["comparison_rule"])
	assert.Equal(t, "tok_****efgh", got["session_token"])
	assert.NotContains(t, got, " ")

	nested := got["nested"].(map[string]any)
	assert.Equal(t, "s_****5678", nested["api_secret"])
	assert.Equal(t, true, nested["passed"])
}

func TestMaskMetadataEmpty(t *testing.T) {
	assert.Nil(t, MaskMetadata(nil))
	assert.Nil(t, MaskMetadata(map[string]any{"": "x"}))
}
