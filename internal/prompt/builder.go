package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"sync"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type TemplateName string

const (
	TemplateQualify       TemplateName = "qualify.tmpl"
	TemplateJudge         TemplateName = "judge.tmpl"
	TemplateCoach         TemplateName = "coach.tmpl"
	TemplateRoleplayCoach TemplateName = "roleplay_coach.tmpl"
)

// requiredTemplates must all be present in the embedded set.
var requiredTemplates = []TemplateName{TemplateQualify, TemplateJudge, TemplateCoach, TemplateRoleplayCoach}

// PromptBuilder renders the embedded prompt templates. Every template is
// parsed once when the builder is created; rendering never touches the
// filesystem.
type PromptBuilder struct {
	set *template.Template
}

var (
	defaultBuilderOnce sync.Once
	defaultBuilder     *PromptBuilder
)

// NewPromptBuilder panics if the embedded templates do not parse or one of
// the stage templates is missing, since both are build-time defects.
func NewPromptBuilder() *PromptBuilder {
	pb, err := parseTemplates()
	if err != nil {
		panic(err)
	}
	return pb
}

func DefaultPromptBuilder() *PromptBuilder {
	defaultBuilderOnce.Do(func() {
		defaultBuilder = NewPromptBuilder()
	})
	return defaultBuilder
}

func parseTemplates() (*PromptBuilder, error) {
	set, err := template.New("prompts").Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	for _, name := range requiredTemplates {
		if set.Lookup(string(name)) == nil {
			return nil, fmt.Errorf("prompt template %s not embedded", name)
		}
	}
	return &PromptBuilder{set: set}, nil
}

// Templates lists the loaded template names, sorted.
func (pb *PromptBuilder) Templates() []TemplateName {
	var names []TemplateName
	for _, t := range pb.set.Templates() {
		if t.Name() == pb.set.Name() {
			continue
		}
		names = append(names, TemplateName(t.Name()))
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (pb *PromptBuilder) Render(name TemplateName, data any) (string, error) {
	tmpl := pb.set.Lookup(string(name))
	if tmpl == nil {
		return "", fmt.Errorf("unknown prompt template %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}
