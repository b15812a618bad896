package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"vatfiler/internal/registration/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed terms.md
var termsMarkdown []byte

var templates = template.Must(template.New("view").ParseFS(templateFS, "templates/*.html"))

// Renderer writes the flow pages. It is safe for concurrent use.
type Renderer struct {
	copy     *Copy
	basePath string
	terms    template.HTML
}

// NewRenderer prepares a renderer for pages mounted under basePath. The
// terms document is converted from markdown once, here.
func NewRenderer(c *Copy, basePath string) (*Renderer, error) {
	terms, err := RenderMarkdown(termsMarkdown)
	if err != nil {
		return nil, fmt.Errorf("render terms: %w", err)
	}
	return &Renderer{copy: c, basePath: basePath, terms: terms}, nil
}

// Page writes the view for st. secrets are password values the current
// request posted; they go back into their inputs so that a page answering
// a form post still submits them. errMsg, when set, is shown above it.
func (r *Renderer) Page(w io.Writer, st models.State, secrets map[models.FieldName]string, errMsg string) error {
	p := NewPage(st, r.copy, r.basePath)
	p.EchoSecrets(secrets)
	p.Error = errMsg
	return execute(w, "page", p)
}

// Terms writes the terms and conditions page.
func (r *Renderer) Terms(w io.Writer) error {
	return execute(w, "terms", struct {
		Body     template.HTML
		BasePath string
	}{r.terms, r.basePath})
}

// LoginView is the data for the login page.
type LoginView struct {
	Email        FieldSet
	Password     FieldSet
	Error        string
	Registered   bool
	RegisterPath string
}

// Login writes the login page with the email prefilled.
func (r *Renderer) Login(w io.Writer, email, errMsg string, registered bool) error {
	return execute(w, "login", LoginView{
		Email: FieldSet{
			Label:    "Email address",
			Required: true,
			Icon:     "mail",
			Input:    Input{Name: "email", Type: "email", Value: email, Autocomplete: "email"},
		},
		Password: FieldSet{
			Label:    "Password",
			Required: true,
			Icon:     "lock",
			Input:    Input{Name: "password", Type: "password", Autocomplete: "current-password"},
		},
		Error:        errMsg,
		Registered:   registered,
		RegisterPath: r.basePath,
	})
}

// execute renders into a buffer first so a template error never leaves a
// half-written page on the wire.
func execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("execute %s template: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts trusted, embedded markdown to HTML.
func RenderMarkdown(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(src, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
