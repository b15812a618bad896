package view

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vatfiler/internal/registration/models"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	c, err := DefaultCopy()
	require.NoError(t, err)
	r, err := NewRenderer(c, "/app/")
	require.NoError(t, err)
	return r
}

func render(t *testing.T, r *Renderer, st models.State) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, st, nil, ""))
	return buf.String()
}

func mustState(t *testing.T, events ...models.Event) models.State {
	t.Helper()
	st, err := models.NewState().ApplyAll(events...)
	require.NoError(t, err)
	return st
}

func TestPageLanding(t *testing.T) {
	html := render(t, newTestRenderer(t), models.NewState())

	assert.Contains(t, html, "Create account")
	assert.Contains(t, html, `value="open_chooser"`)
	assert.NotContains(t, html, `class="overlay"`)
	assert.NotContains(t, html, `class="registration`)
	assert.NotContains(t, html, "hero-dimmed")
}

func TestPageChoosing(t *testing.T) {
	r := newTestRenderer(t)

	t.Run("chooser visible dims the hero", func(t *testing.T) {
		html := render(t, r, mustState(t, models.OpenChooser()))
		assert.Contains(t, html, "hero-dimmed")
		assert.Contains(t, html, `class="overlay"`)
		assert.Contains(t, html, "Taxpayer Account")
		assert.Contains(t, html, "Tax Agent Account")
		assert.Contains(t, html, `value="close_chooser"`)
		assert.NotContains(t, html, `value="open_chooser"`)
	})

	t.Run("dismissed chooser shows the plain hero", func(t *testing.T) {
		html := render(t, r, mustState(t, models.OpenChooser(), models.CloseChooser()))
		assert.NotContains(t, html, `class="overlay"`)
		assert.NotContains(t, html, "hero-dimmed")
		assert.Contains(t, html, `value="open_chooser"`)
		assert.Contains(t, html, "stage-choosing")
	})
}

func TestPageFormCopyFollowsMode(t *testing.T) {
	r := newTestRenderer(t)

	taxpayer := render(t, r, mustState(t, models.OpenChooser(), models.ChooseAccount(models.ModeTaxpayer)))
	assert.Contains(t, taxpayer, "Create your taxpayer account")
	assert.Contains(t, taxpayer, "Business name")
	assert.NotContains(t, taxpayer, `class="overlay"`)

	agent := render(t, r, mustState(t, models.OpenChooser(), models.ChooseAccount(models.ModeAgent)))
	assert.Contains(t, agent, "Create your tax agent account")
	assert.Contains(t, agent, "Practice name")

	// Same structure for both modes.
	for _, html := range []string{taxpayer, agent} {
		for _, f := range models.TextFields {
			assert.Contains(t, html, `name="`+string(f)+`"`)
		}
		assert.Contains(t, html, `name="software_vat"`)
		assert.Contains(t, html, `name="software_itsa"`)
		assert.Contains(t, html, `name="agreement"`)
	}
}

func TestPageFormPillsReflectMode(t *testing.T) {
	st := mustState(t, models.OpenChooser(), models.ChooseAccount(models.ModeAgent))
	p := NewPage(st, newTestRenderer(t).copy, "/app/")

	require.Len(t, p.Pills, 2)
	assert.False(t, p.Pills[0].Active)
	assert.True(t, p.Pills[1].Active)
	assert.Equal(t, models.ModeAgent, p.Pills[1].Mode)
}

func TestPillsSubmitTheFieldsForm(t *testing.T) {
	html := render(t, newTestRenderer(t), mustState(t, models.OpenChooser(), models.ChooseAccount(models.ModeTaxpayer)))

	assert.Contains(t, html, `id="fields"`)
	assert.Contains(t, html, `form="fields" name="select_mode" value="agent"`)
	assert.Contains(t, html, `form="fields" name="select_mode" value="taxpayer"`)
	assert.Less(t, strings.Index(html, `class="save"`), strings.Index(html, `name="select_mode"`),
		"the implicit submit button must come before the pills")
}

func TestRegisterButtonFollowsAgreement(t *testing.T) {
	r := newTestRenderer(t)
	form := mustState(t, models.OpenChooser(), models.ChooseAccount(models.ModeTaxpayer))

	disabled := render(t, r, form)
	assert.Regexp(t, `value="register" class="register" disabled`, disabled)

	agreed, err := form.Apply(models.ToggleAgreement())
	require.NoError(t, err)
	enabled := render(t, r, agreed)
	assert.NotRegexp(t, `value="register" class="register" disabled`, enabled)
	assert.Contains(t, enabled, "checked")
}

func TestSecretsAreNotEchoed(t *testing.T) {
	st := mustState(t,
		models.OpenChooser(), models.ChooseAccount(models.ModeTaxpayer),
		models.SetField(models.FieldEmail, "owner@example.com"),
		models.SetField(models.FieldPassword, "hunter22-secret"),
	)
	html := render(t, newTestRenderer(t), st)
	assert.Contains(t, html, "owner@example.com")
	assert.NotContains(t, html, "hunter22-secret")
}

func TestPageEchoesPostedPasswords(t *testing.T) {
	st := mustState(t, models.OpenChooser(), models.ChooseAccount(models.ModeTaxpayer),
		models.SetField(models.FieldPassword, "from-state"))
	var buf bytes.Buffer
	err := newTestRenderer(t).Page(&buf, st, map[models.FieldName]string{
		models.FieldPassword:        "typed-secret",
		models.FieldConfirmPassword: "typed-secret",
		models.FieldEmail:           "ignored@example.com",
	}, "")
	require.NoError(t, err)

	html := buf.String()
	assert.Equal(t, 2, strings.Count(html, `value="typed-secret"`))
	assert.NotContains(t, html, "from-state")
	assert.NotContains(t, html, "ignored@example.com", "only secret inputs take echoed values")
}

func TestPageEscapesUserInput(t *testing.T) {
	st := mustState(t,
		models.OpenChooser(), models.ChooseAccount(models.ModeTaxpayer),
		models.SetField(models.FieldBusinessName, `"><script>alert(1)</script>`),
	)
	html := render(t, newTestRenderer(t), st)
	assert.NotContains(t, html, "<script>alert(1)</script>")
}

func TestFieldSetRender(t *testing.T) {
	t.Run("text input with icon, marker and hint", func(t *testing.T) {
		out, err := FieldSet{
			Label:    "Phone number",
			Required: true,
			Hint:     "Include the country code.",
			Icon:     "phone",
			Input:    Input{Name: "phone", Type: "tel", Placeholder: "+44", Value: "0123"},
		}.Render()
		require.NoError(t, err)
		html := string(out)
		assert.Contains(t, html, `<label for="field-phone">Phone number`)
		assert.Contains(t, html, `class="required"`)
		assert.Contains(t, html, `icon-phone`)
		assert.Contains(t, html, `placeholder="&#43;44"`)
		assert.Contains(t, html, `value="0123"`)
		assert.Contains(t, html, "Include the country code.")
	})

	t.Run("bare checkbox", func(t *testing.T) {
		out, err := FieldSet{Label: "VAT", Input: Input{Name: "software_vat", Type: "checkbox"}}.Render()
		require.NoError(t, err)
		html := string(out)
		assert.Contains(t, html, `type="checkbox"`)
		assert.NotContains(t, html, "checked")
		assert.NotContains(t, html, `class="hint"`)
		assert.NotContains(t, html, `class="required"`)
	})
}

func TestParseCopyRequiresEveryLabel(t *testing.T) {
	_, err := ParseCopy([]byte("modes:\n  taxpayer:\n    labels:\n      email: Email\n"))
	require.Error(t, err)

	_, err = ParseCopy([]byte("hero: ["))
	require.Error(t, err)
}

func TestTermsAndLogin(t *testing.T) {
	r := newTestRenderer(t)

	var terms bytes.Buffer
	require.NoError(t, r.Terms(&terms))
	assert.Contains(t, terms.String(), "<h1>Terms and conditions</h1>")
	assert.Contains(t, terms.String(), "<strong>Tax agents</strong>")

	var login bytes.Buffer
	require.NoError(t, r.Login(&login, "someone@example.com", "Invalid credentials.", true))
	out := login.String()
	assert.Contains(t, out, `value="someone@example.com"`)
	assert.Contains(t, out, "Invalid credentials.")
	assert.Contains(t, out, "Your account has been created")
	assert.True(t, strings.Contains(out, `href="/app/"`))
}
