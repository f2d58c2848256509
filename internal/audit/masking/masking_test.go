package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskText(t *testing.T) {
	assert.Equal(t, "", MaskText("  "))
	assert.Equal(t, "****", MaskText("abc"))
	assert.Equal(t, "****arch", MaskText("for research"))
}

func TestMaskMetadata(t *testing.T) {
	out := MaskMetadata(map[string]any{
		"remark":   "please deliver fast",
		"order_no": "CM01J",
		"amount":   "100",
		"nested":   map[string]any{"Email": "buyer@example.com"},
		" ":        "dropped",
	})

	assert.Equal(t, "****fast", out["remark"])
	assert.Equal(t, "CM01J", out["order_no"])
	assert.Equal(t, "100", out["amount"])
	assert.Equal(t, map[string]any{"Email": "****.com"}, out["nested"])
	assert.NotContains(t, out, " ")
	assert.Nil(t, MaskMetadata(nil))
}
