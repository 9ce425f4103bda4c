package docengine

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"vellum/internal/domain/models/doc"
)

//go:embed templates/*.yaml
var templateFiles embed.FS

// DocumentTemplate is a YAML-defined starting point for new documents.
type DocumentTemplate struct {
	Name        string          `yaml:"name"`
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Parties     []TemplateParty `yaml:"parties"`
	Blocks      []TemplateBlock `yaml:"blocks"`
}

// TemplateParty declares a party created with the document.
type TemplateParty struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// TemplateBlock is the YAML shape of a block; it is instantiated through
// NewBlock so every copy gets fresh ids and type defaults.
type TemplateBlock struct {
	Type         string             `yaml:"type"`
	Content      string             `yaml:"content"`
	Label        string             `yaml:"label"`
	Placeholder  string             `yaml:"placeholder"`
	VariableName string             `yaml:"variable_name"`
	Options      []string           `yaml:"options"`
	Required     bool               `yaml:"required"`
	Formula      string             `yaml:"formula"`
	Condition    *TemplateCondition `yaml:"condition"`
	Children     []TemplateBlock    `yaml:"children"`
	ElseChildren []TemplateBlock    `yaml:"else_children"`
}

// TemplateCondition is the YAML shape of a conditional's rule.
type TemplateCondition struct {
	VariableName string `yaml:"variable_name"`
	Operator     string `yaml:"operator"`
	Value        string `yaml:"value"`
}

// TemplateRegistry holds the embedded document templates.
type TemplateRegistry struct {
	templates map[string]*DocumentTemplate
	mu        sync.RWMutex
}

// NewTemplateRegistry loads every embedded template file.
func NewTemplateRegistry() (*TemplateRegistry, error) {
	r := &TemplateRegistry{templates: make(map[string]*DocumentTemplate)}

	entries, err := fs.ReadDir(templateFiles, "templates")
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := templateFiles.ReadFile("templates/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}
		var tpl DocumentTemplate
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return nil, fmt.Errorf("unmarshal template %s: %w", entry.Name(), err)
		}
		if tpl.Name == "" {
			return nil, fmt.Errorf("template %s has no name", entry.Name())
		}
		r.templates[tpl.Name] = &tpl
	}
	return r, nil
}

// Names lists the registered template names.
func (r *TemplateRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

// Instantiate builds a fresh draft document from the named template. Every
// block and party receives a new id; the content hash is computed up front
// so a never-edited document still carries a valid fingerprint.
func (r *TemplateRegistry) Instantiate(name, title string) (*doc.DocumentState, error) {
	r.mu.RLock()
	tpl, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}

	if title == "" {
		title = tpl.Title
	}
	now := time.Now().UTC()
	state := &doc.DocumentState{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    doc.StatusDraft,
		Blocks:    instantiateBlocks(tpl.Blocks),
		Parties:   []doc.Party{},
		Variables: []doc.Variable{},
		Terms:     []doc.Term{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, p := range tpl.Parties {
		state.Parties = append(state.Parties, NewParty(p.Name, p.Email, i))
	}

	sum, err := HashDocument(state)
	if err != nil {
		return nil, fmt.Errorf("hash new document: %w", err)
	}
	state.SHA256 = sum
	return state, nil
}

func instantiateBlocks(templates []TemplateBlock) []*doc.Block {
	out := make([]*doc.Block, 0, len(templates))
	for _, t := range templates {
		b := NewBlock(doc.BlockType(t.Type))
		if t.Content != "" {
			b.Content = t.Content
		}
		if t.Label != "" {
			b.Label = t.Label
		}
		if t.Placeholder != "" {
			b.Placeholder = t.Placeholder
		}
		if t.VariableName != "" {
			b.VariableName = t.VariableName
		}
		if len(t.Options) > 0 {
			b.Options = append([]string(nil), t.Options...)
		}
		if t.Required {
			b.Required = true
		}
		if t.Formula != "" {
			b.Formula = t.Formula
		}
		if t.Condition != nil {
			b.Condition = &doc.Condition{
				VariableName: t.Condition.VariableName,
				Operator:     doc.ConditionOperator(t.Condition.Operator),
				Value:        t.Condition.Value,
			}
		}
		if len(t.Children) > 0 {
			b.Children = instantiateBlocks(t.Children)
		}
		if len(t.ElseChildren) > 0 {
			b.ElseChildren = instantiateBlocks(t.ElseChildren)
		}
		out = append(out, b)
	}
	return out
}
