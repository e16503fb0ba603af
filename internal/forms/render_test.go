package forms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Consent(t *testing.T) {
	out, err := Render(Default().MustGet("consent"), "/step1")
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `<form action="/step1" class="form-horizontal" method="GET" enctype="multipart/form-data" id="wizard-form">`)
	assert.Contains(t, html, `<div class="col-sm-4 control-label"><label for="einverstanden">Ich bin einverstanden</label></div>`)
	assert.Contains(t, html, `<select class="form-control" id="einverstanden" name="einverstanden" required>`)
	assert.Contains(t, html, `<option value="Ja">Ja</option><option value="Nein">Nein</option>`)
	assert.Contains(t, html, `<button type="submit" id="submit_form_button" class="btn btn-primary">Senden</button>`)
	assert.Equal(t, 1, strings.Count(html, "form-group row_vertical_offset"))
	assert.NotContains(t, html, `type="hidden"`)
}

func TestRender_PersonalFieldOrderAndKinds(t *testing.T) {
	def := Default().MustGet("personal")
	out, err := Render(def, "/create", WithMethod("post"))
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `method="POST"`)
	assert.Equal(t, len(def.Fields), strings.Count(html, "form-group row_vertical_offset"))
	assert.Contains(t, html, `name="email_gruender" type="email" value="" required>`)
	assert.Contains(t, html, `name="telefon_gruender" type="tel" value="">`)
	assert.Contains(t, html, `name="geburtstag_gruender" type="date" value="">`)

	last := -1
	for _, name := range def.Names() {
		idx := strings.Index(html, `name="`+name+`"`)
		require.Greater(t, idx, last, "field %s out of order", name)
		last = idx
	}
}

func TestRender_HiddenFieldsSorted(t *testing.T) {
	def := Default().MustGet("personal")
	out, err := Render(def, "/create",
		WithHidden(map[string]string{"kanton": "Zürich", "einverstanden": "Ja", " ": "dropped"}),
	)
	require.NoError(t, err)
	html := string(out)

	consent := strings.Index(html, `<input type="hidden" name="einverstanden" value="Ja">`)
	canton := strings.Index(html, `<input type="hidden" name="kanton" value="Zürich">`)
	require.NotEqual(t, -1, consent)
	require.NotEqual(t, -1, canton)
	assert.Less(t, consent, canton)
	assert.Equal(t, 2, strings.Count(html, `type="hidden"`))
}

func TestRender_EscapesHiddenValues(t *testing.T) {
	out, err := Render(Default().MustGet("canton"), "/step2",
		WithHidden(map[string]string{"einverstanden": `"><script>x</script>`}))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
}

func TestRender_Deterministic(t *testing.T) {
	def := Default().MustGet("personal")
	hidden := map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"}

	first, err := Render(def, "/create", WithHidden(hidden), WithID("f"), WithEnctype("application/x-www-form-urlencoded"))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Render(def, "/create", WithHidden(hidden), WithID("f"), WithEnctype("application/x-www-form-urlencoded"))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Contains(t, string(first), `id="f"`)
	assert.Contains(t, string(first), `enctype="application/x-www-form-urlencoded"`)
}
