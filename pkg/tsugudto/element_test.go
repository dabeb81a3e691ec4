package tsugudto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestElementKeepsUnknownFields(t *testing.T) {
	in := `[{"type":"image_url","url":"http://x/a.png","width":640},{"type":"string","string":"hi"}]`
	var els []Element
	require.NoError(t, json.Unmarshal([]byte(in), &els))
	require.Len(t, els, 2)
	require.Equal(t, "image_url", els[0].Type)
	require.Empty(t, els[0].String)
	require.Equal(t, ElementString, els[1].Type)
	require.Equal(t, "hi", els[1].String)

	out, err := json.Marshal(els)
	require.NoError(t, err)
	require.JSONEq(t, in, string(out))
}

func TestElementNonStringPayload(t *testing.T) {
	var el Element
	require.NoError(t, json.Unmarshal([]byte(`{"type":"chart","string":{"w":3}}`), &el))
	require.Equal(t, "chart", el.Type)
	require.Empty(t, el.String)

	out, err := json.Marshal(el)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"chart","string":{"w":3}}`, string(out))
}

func TestBuiltElementEncodesTypeAndString(t *testing.T) {
	out, err := json.Marshal(Text("ok"))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"string","string":"ok"}`, string(out))
}
