package snippet

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/complianced/internal/gates"
)

//go:embed data/snippets.yaml
var builtinSnippets []byte

//go:embed data/taxonomy.yaml
var builtinTaxonomy []byte

type snippetEntry struct {
	ModuleID       string         `yaml:"module_id"`
	GateID         string         `yaml:"gate_id"`
	Severity       gates.Severity `yaml:"severity"`
	InsertionPoint InsertionPoint `yaml:"insertion_point"`
	SectionHeader  string         `yaml:"section_header"`
	Priority       int            `yaml:"priority"`
	Template       string         `yaml:"template"`
}

type snippetFile struct {
	Version  int            `yaml:"version"`
	Snippets []snippetEntry `yaml:"snippets"`
}

// TaxonomyCategory is one parameterized fallback template. Gates with no
// hand-authored snippet resolve to the first category whose keywords match.
type TaxonomyCategory struct {
	Name           string         `yaml:"name"`
	Keywords       []string       `yaml:"keywords"`
	InsertionPoint InsertionPoint `yaml:"insertion_point"`
	SectionHeader  string         `yaml:"section_header"`
	Priority       int            `yaml:"priority"`
	Template       string         `yaml:"template"`
}

type taxonomyFile struct {
	Version    int                `yaml:"version"`
	Categories []TaxonomyCategory `yaml:"categories"`
}

var knownCategories = map[string]bool{
	"risk_warning": true,
	"disclosure":   true,
	"procedure":    true,
	"definition":   true,
	"consent":      true,
	"limitation":   true,
}

// Catalog maps failing gates to template fixes. Built once at startup.
type Catalog struct {
	snippets   map[string]Snippet
	categories []TaxonomyCategory
	logger     *zap.Logger
}

// NewCatalog builds a catalog for every gate declared in the registry using
// the embedded snippet and taxonomy data.
func NewCatalog(reg *gates.Registry, logger *zap.Logger) (*Catalog, error) {
	return newCatalog(reg, builtinSnippets, builtinTaxonomy, logger)
}

// newCatalog is the data-injectable constructor used by tests.
func newCatalog(reg *gates.Registry, snippetData, taxonomyData []byte, logger *zap.Logger) (*Catalog, error) {
	if reg == nil {
		return nil, fmt.Errorf("gate registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	authored, err := parseSnippets(snippetData)
	if err != nil {
		return nil, err
	}
	categories, err := parseTaxonomy(taxonomyData)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		snippets:   make(map[string]Snippet),
		categories: categories,
		logger:     logger,
	}

	for _, moduleID := range reg.ModuleIDs() {
		mod, _ := reg.Module(moduleID)
		for _, gate := range mod.Gates {
			key := moduleID + ":" + gate.ID
			if s, ok := authored[key]; ok {
				c.snippets[key] = s
				continue
			}
			c.snippets[key] = c.resolveFallback(moduleID, gate)
		}
	}

	logger.Debug("snippet catalog built",
		zap.Int("snippets", len(c.snippets)),
		zap.Int("taxonomy_categories", len(categories)),
	)
	return c, nil
}

func parseSnippets(data []byte) (map[string]Snippet, error) {
	var file snippetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse snippet data: %w", err)
	}

	authored := make(map[string]Snippet, len(file.Snippets))
	for _, e := range file.Snippets {
		if e.ModuleID == "" || e.GateID == "" {
			return nil, fmt.Errorf("snippet with empty module_id or gate_id")
		}
		if !e.InsertionPoint.Valid() {
			return nil, fmt.Errorf("snippet %s:%s has unknown insertion point %q", e.ModuleID, e.GateID, e.InsertionPoint)
		}
		if e.InsertionPoint == InsertSection && e.SectionHeader == "" {
			return nil, fmt.Errorf("snippet %s:%s uses section insertion without a section header", e.ModuleID, e.GateID)
		}
		if strings.TrimSpace(e.Template) == "" {
			return nil, fmt.Errorf("snippet %s:%s has an empty template", e.ModuleID, e.GateID)
		}
		key := e.ModuleID + ":" + e.GateID
		if _, ok := authored[key]; ok {
			return nil, fmt.Errorf("duplicate snippet for %s", key)
		}
		priority := e.Priority
		if priority == 0 {
			priority = DefaultPriority(e.Severity)
		}
		authored[key] = Snippet{
			GateID:         e.GateID,
			ModuleID:       e.ModuleID,
			Severity:       e.Severity,
			Template:       strings.TrimSpace(e.Template),
			InsertionPoint: e.InsertionPoint,
			Priority:       priority,
			SectionHeader:  e.SectionHeader,
		}
	}
	return authored, nil
}

func parseTaxonomy(data []byte) ([]TaxonomyCategory, error) {
	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy data: %w", err)
	}
	for _, cat := range file.Categories {
		if !knownCategories[cat.Name] {
			return nil, fmt.Errorf("unknown taxonomy category %q", cat.Name)
		}
		if len(cat.Keywords) == 0 {
			return nil, fmt.Errorf("taxonomy category %q has no keywords", cat.Name)
		}
		if !cat.InsertionPoint.Valid() {
			return nil, fmt.Errorf("taxonomy category %q has unknown insertion point %q", cat.Name, cat.InsertionPoint)
		}
		if cat.InsertionPoint == InsertSection && cat.SectionHeader == "" {
			return nil, fmt.Errorf("taxonomy category %q uses section insertion without a section header", cat.Name)
		}
	}
	return file.Categories, nil
}

// resolveFallback synthesizes a snippet for a gate with no hand-authored fix:
// first via the taxonomy, then a generic section snippet titled from the gate.
func (c *Catalog) resolveFallback(moduleID string, gate gates.GateSpec) Snippet {
	subject := moduleID + ":" + gate.ID
	for _, cat := range c.categories {
		if !matchesKeywords(subject, cat.Keywords) {
			continue
		}
		priority := cat.Priority
		if priority == 0 {
			priority = DefaultPriority(gate.Sev)
		}
		return Snippet{
			GateID:         gate.ID,
			ModuleID:       moduleID,
			Severity:       gate.Sev,
			Template:       parameterizeCategory(cat.Template, gate),
			InsertionPoint: cat.InsertionPoint,
			Priority:       priority,
			SectionHeader:  cat.SectionHeader,
			Generic:        true,
		}
	}

	title := humanizeID(gate.ID)
	template := title + ": this document must satisfy the requirement derived from " + legalSourceOr(gate) + "."
	return Snippet{
		GateID:         gate.ID,
		ModuleID:       moduleID,
		Severity:       gate.Sev,
		Template:       template,
		InsertionPoint: InsertSection,
		Priority:       DefaultPriority(gate.Sev),
		SectionHeader:  strings.ToUpper(title),
		Generic:        true,
	}
}

// parameterizeCategory fills the taxonomy-only placeholders. Caller-context
// placeholders like [FIRM_NAME] survive for Format.
func parameterizeCategory(template string, gate gates.GateSpec) string {
	out := strings.TrimSpace(template)
	out = strings.ReplaceAll(out, "[GATE_NAME]", gateNameOr(gate))
	out = strings.ReplaceAll(out, "[LEGAL_SOURCE]", legalSourceOr(gate))
	return out
}

func gateNameOr(gate gates.GateSpec) string {
	if gate.Title != "" {
		return gate.Title
	}
	return humanizeID(gate.ID)
}

func legalSourceOr(gate gates.GateSpec) string {
	if gate.Source != "" {
		return gate.Source
	}
	return "the applicable regulatory requirement"
}

func matchesKeywords(subject string, keywords []string) bool {
	lower := strings.ToLower(subject)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func humanizeID(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '_' || r == '-' || r == ':'
	})
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Lookup returns the snippet registered for a module:gate pair.
func (c *Catalog) Lookup(moduleID, gateID string) (Snippet, bool) {
	s, ok := c.snippets[moduleID+":"+gateID]
	return s, ok
}

// Len returns the number of registered snippets.
func (c *Catalog) Len() int {
	return len(c.snippets)
}

// All returns every registered snippet sorted by key.
func (c *Catalog) All() []Snippet {
	out := make([]Snippet, 0, len(c.snippets))
	for _, s := range c.snippets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// ForFailures resolves every failing gate in the validation result to its
// snippet, sorted descending by priority (key ascending on ties).
func (c *Catalog) ForFailures(v gates.ValidationResult) []Snippet {
	var out []Snippet
	for _, f := range v.FailingGates() {
		s, ok := c.Lookup(f.ModuleID, f.GateID)
		if !ok {
			c.logger.Debug("no snippet for failing gate",
				zap.String("module_id", f.ModuleID),
				zap.String("gate_id", f.GateID),
			)
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}
