package view

import (
	"vatfiler/internal/registration/models"
)

// fieldSpec is the mode-independent structure of one text input.
type fieldSpec struct {
	name         models.FieldName
	inputType    string
	icon         string
	required     bool
	autocomplete string
}

// formLayout is shared by both modes.
var formLayout = []fieldSpec{
	{models.FieldEmail, "email", "mail", true, "email"},
	{models.FieldConfirmEmail, "email", "mail", true, "off"},
	{models.FieldPassword, "password", "lock", true, "new-password"},
	{models.FieldConfirmPassword, "password", "lock", true, "new-password"},
	{models.FieldContactName, "text", "user", true, "name"},
	{models.FieldBusinessName, "text", "building", false, "organization"},
	{models.FieldPhone, "tel", "phone", false, "tel"},
}

const (
	CheckboxSoftwareVAT  = "software_vat"
	CheckboxSoftwareITSA = "software_itsa"
	CheckboxAgreement    = "agreement"

	// ButtonSelectMode names the mode pills. They submit the fields form.
	ButtonSelectMode = "select_mode"
)

// Pill is one of the two mode toggle buttons.
type Pill struct {
	Label  string
	Mode   models.Mode
	Active bool
}

// ChooserOption is one button in the chooser overlay.
type ChooserOption struct {
	Label string
	Hint  string
	Mode  models.Mode
}

// FormView is the registration form for the active mode.
type FormView struct {
	Heading         string
	Intro           string
	Fields          []FieldSet
	Interests       []FieldSet
	Agreement       FieldSet
	RegisterLabel   string
	RegisterEnabled bool
}

// Page is everything the layout template needs for one render.
type Page struct {
	Title    string
	BasePath string
	Stage    models.Stage
	Mode     models.Mode
	Error    string

	ShowHero    bool
	HeroDimmed  bool
	ShowChooser bool
	ShowForm    bool

	Copy    *Copy
	Options []ChooserOption
	Pills   []Pill
	Form    FormView
}

// NewPage maps a flow state onto the view that must be shown for it:
//   - landing: hero with the call to action
//   - choosing, chooser visible: dimmed hero under the chooser overlay
//   - choosing, chooser dismissed: the hero again, undimmed
//   - form: mode pills and the field set labelled for the mode
//
// Secret fields are never rendered from st.
func NewPage(st models.State, c *Copy, basePath string) Page {
	p := Page{
		Title:    c.Hero.CTA,
		BasePath: basePath,
		Stage:    st.Stage,
		Mode:     st.Mode,
		Copy:     c,
	}

	switch st.Stage {
	case models.StageLanding:
		p.ShowHero = true
	case models.StageChoosing:
		p.ShowHero = true
		p.ShowChooser = st.ModalVisible()
		p.HeroDimmed = p.ShowChooser
		p.Options = []ChooserOption{
			{Label: c.Chooser.Taxpayer, Hint: c.Chooser.TaxpayerHint, Mode: models.ModeTaxpayer},
			{Label: c.Chooser.Agent, Hint: c.Chooser.AgentHint, Mode: models.ModeAgent},
		}
	case models.StageForm:
		p.ShowForm = true
		p.Pills = []Pill{
			{Label: c.ForMode(models.ModeTaxpayer).Pill, Mode: models.ModeTaxpayer, Active: st.Mode == models.ModeTaxpayer},
			{Label: c.ForMode(models.ModeAgent).Pill, Mode: models.ModeAgent, Active: st.Mode == models.ModeAgent},
		}
		p.Form = newFormView(st, c)
		p.Title = p.Form.Heading
	}
	return p
}

// EchoSecrets puts values the browser has just posted back into the
// secret inputs, so a page re-rendered in place still submits them.
func (p *Page) EchoSecrets(secrets map[models.FieldName]string) {
	for i, f := range p.Form.Fields {
		name := models.FieldName(f.Input.Name)
		if v, ok := secrets[name]; ok && name.IsSecret() {
			p.Form.Fields[i].Input.Value = v
		}
	}
}

func newFormView(st models.State, c *Copy) FormView {
	mc := c.ForMode(st.Mode)
	fv := FormView{
		Heading:         mc.Heading,
		Intro:           mc.Intro,
		RegisterLabel:   mc.Register,
		RegisterEnabled: st.RegisterEnabled(),
	}
	for _, spec := range formLayout {
		value := st.Fields.Get(spec.name)
		if spec.name.IsSecret() {
			value = ""
		}
		fv.Fields = append(fv.Fields, FieldSet{
			Label:    mc.Labels[spec.name],
			Required: spec.required,
			Hint:     mc.Hints[spec.name],
			Icon:     spec.icon,
			Input: Input{
				Name:         string(spec.name),
				Type:         spec.inputType,
				Value:        value,
				Autocomplete: spec.autocomplete,
			},
		})
	}
	fv.Interests = []FieldSet{
		{Label: c.Interests.SoftwareVAT, Input: Input{Name: CheckboxSoftwareVAT, Type: "checkbox", Checked: st.Fields.SoftwareVAT}},
		{Label: c.Interests.SoftwareITSA, Input: Input{Name: CheckboxSoftwareITSA, Type: "checkbox", Checked: st.Fields.SoftwareITSA}},
	}
	fv.Agreement = FieldSet{
		Label:    c.Agreement,
		Required: true,
		Input: Input{
			Name:           CheckboxAgreement,
			Type:           "checkbox",
			Checked:        st.Fields.Agreement,
			SubmitOnChange: true,
		},
	}
	return fv
}
