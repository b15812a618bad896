package view

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"vatfiler/internal/registration/models"
)

//go:embed copy.yaml
var defaultCopyYAML []byte

// Copy is the wording catalog for the flow.
type Copy struct {
	Hero struct {
		Title    string `yaml:"title"`
		Subtitle string `yaml:"subtitle"`
		CTA      string `yaml:"cta"`
	} `yaml:"hero"`
	Chooser struct {
		Title        string `yaml:"title"`
		Taxpayer     string `yaml:"taxpayer"`
		TaxpayerHint string `yaml:"taxpayer_hint"`
		Agent        string `yaml:"agent"`
		AgentHint    string `yaml:"agent_hint"`
		Close        string `yaml:"close"`
	} `yaml:"chooser"`
	Interests struct {
		SoftwareVAT  string `yaml:"software_vat"`
		SoftwareITSA string `yaml:"software_itsa"`
	} `yaml:"interests"`
	Agreement string                   `yaml:"agreement"`
	TermsLink string                   `yaml:"terms_link"`
	Modes     map[models.Mode]ModeCopy `yaml:"modes"`
}

// ModeCopy is the mode-dependent part of the form wording.
type ModeCopy struct {
	Pill     string                      `yaml:"pill"`
	Heading  string                      `yaml:"heading"`
	Intro    string                      `yaml:"intro"`
	Register string                      `yaml:"register"`
	Labels   map[models.FieldName]string `yaml:"labels"`
	Hints    map[models.FieldName]string `yaml:"hints"`
}

// DefaultCopy parses the embedded catalog.
func DefaultCopy() (*Copy, error) {
	return ParseCopy(defaultCopyYAML)
}

// ParseCopy decodes a catalog and checks that every mode labels every field.
func ParseCopy(data []byte) (*Copy, error) {
	var c Copy
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode copy catalog: %w", err)
	}
	for _, mode := range []models.Mode{models.ModeTaxpayer, models.ModeAgent} {
		mc, ok := c.Modes[mode]
		if !ok {
			return nil, fmt.Errorf("copy catalog has no %s mode", mode)
		}
		for _, f := range models.TextFields {
			if mc.Labels[f] == "" {
				return nil, fmt.Errorf("copy catalog: %s mode has no label for %s", mode, f)
			}
		}
	}
	return &c, nil
}

// ForMode returns the wording for mode.
func (c *Copy) ForMode(mode models.Mode) ModeCopy {
	return c.Modes[mode]
}
