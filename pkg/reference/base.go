package reference

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"zoi/sentinel/pkg/compliance"
	"zoi/sentinel/pkg/extraction"
)

//go:embed products.yaml
var defaultBase []byte

// EmbeddedSource is the Source of the embedded base.
const EmbeddedSource = "embedded"

type baseFile struct {
	Version  string                    `yaml:"version"`
	Aliases  map[string]string         `yaml:"aliases"`
	Products map[string]map[string]any `yaml:"products"`
}

// Summary is the listing form of a reference product.
type Summary struct {
	Slug      string                    `json:"slug"`
	Name      string                    `json:"name"`
	NCMCode   string                    `json:"ncm_code"`
	Category  string                    `json:"category"`
	RiskScore int                       `json:"risk_score"`
	Status    compliance.ApprovalStatus `json:"status"`
}

// Base is an immutable set of reference products and aliases.
type Base struct {
	version    string
	source     string
	products   map[string]*compliance.Record
	slugs      []string
	normalizer *compliance.Normalizer
}

// BaseError reports a reference file that could not be used.
type BaseError struct {
	Source string
	Cause  error
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	return fmt.Sprintf("reference base %s: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *BaseError) Unwrap() error {
	return e.Cause
}

// ParseBase decodes a YAML reference base. Product keys are slugified;
// records go through the same decoder as research output.
func ParseBase(data []byte, source string) (*Base, error) {
	var f baseFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &BaseError{Source: source, Cause: err}
	}
	if len(f.Products) == 0 {
		return nil, &BaseError{Source: source, Cause: fmt.Errorf("no products defined")}
	}

	b := &Base{
		version:    f.Version,
		source:     source,
		products:   make(map[string]*compliance.Record, len(f.Products)),
		normalizer: compliance.NewNormalizer(f.Aliases),
	}
	for raw, doc := range f.Products {
		slug := compliance.Slugify(raw)
		if slug == "" {
			return nil, &BaseError{Source: source, Cause: fmt.Errorf("product key %q has no letters or digits", raw)}
		}
		if _, dup := b.products[slug]; dup {
			return nil, &BaseError{Source: source, Cause: fmt.Errorf("product %q defined twice", slug)}
		}
		if b.normalizer.Normalize(slug) != slug {
			return nil, &BaseError{Source: source, Cause: fmt.Errorf("product %q is also an alias", slug)}
		}

		rec := extraction.Decode(slug, doc)
		rec.Slug = slug
		rec.Warnings = nil
		rec.DataSource = compliance.DataSourceReference
		b.products[slug] = rec
		b.slugs = append(b.slugs, slug)
	}
	slices.Sort(b.slugs)
	return b, nil
}

// LoadBase reads a reference base from path.
func LoadBase(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &BaseError{Source: path, Cause: err}
	}
	return ParseBase(data, path)
}

// DefaultBase returns the embedded base. It panics if the embedded file is
// invalid.
func DefaultBase() *Base {
	b, err := ParseBase(defaultBase, EmbeddedSource)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Base) Version() string { return b.version }

func (b *Base) Source() string { return b.source }

func (b *Base) Len() int { return len(b.products) }

// Normalizer returns the key normalizer built from the alias table.
func (b *Base) Normalizer() *compliance.Normalizer { return b.normalizer }

// Lookup returns a copy of the record for slug.
func (b *Base) Lookup(slug string) (*compliance.Record, bool) {
	rec, ok := b.products[slug]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Products lists the base, sorted by slug.
func (b *Base) Products() []Summary {
	out := make([]Summary, 0, len(b.slugs))
	for _, slug := range b.slugs {
		rec := b.products[slug]
		out = append(out, Summary{
			Slug:      slug,
			Name:      rec.ProductName,
			NCMCode:   rec.NCMCode,
			Category:  rec.Category,
			RiskScore: rec.RiskScore,
			Status:    rec.Status,
		})
	}
	return out
}
