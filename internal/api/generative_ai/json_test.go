package generativeAI

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"fenced object", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"prose around object", "Sure! Here it is: {\"a\":{\"b\":2}} hope this helps", `{"a":{"b":2}}`},
		{"array first", "[{\"name\":\"x\"}]", `[{"name":"x"}]`},
		{"no json", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONResponse(tt.input))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Answer string `json:"answer"`
	}
	require.NoError(t, DecodeJSON("```json\n{\"answer\":\"ok\"}\n```", &out))
	assert.Equal(t, "ok", out.Answer)

	err := DecodeJSON("not json at all", &out)
	assert.Error(t, err)
}
