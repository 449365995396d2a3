package store

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// RankConfig holds the pluggable pieces of the ranking heuristic. The default
// values encode UK/generic food-naming conventions ("Banana, raw",
// "Banana (small)"); datasets with different canonical-naming conventions can
// override them from YAML without touching the tier machinery.
type RankConfig struct {
	// GenericBrand is the brand value that marks unbranded canonical items.
	// Compared case-insensitively.
	GenericBrand string `yaml:"generic_brand"`
	// QualifierPrefixes are the separators that signal a qualified variant of
	// a base item when they directly follow the query in the name.
	QualifierPrefixes []string `yaml:"qualifier_prefixes"`
}

// DefaultRankConfig returns the built-in heuristics.
func DefaultRankConfig() RankConfig {
	return RankConfig{
		GenericBrand:      "generic",
		QualifierPrefixes: []string{",", " (", " -"},
	}
}

// LoadRankConfig reads a ranking-heuristic override from a YAML file. Missing
// fields fall back to the defaults.
func LoadRankConfig(path string) (RankConfig, error) {
	cfg := DefaultRankConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, eris.Wrapf(err, "store: read rank config %s", path)
	}

	var wrapper struct {
		Ranking RankConfig `yaml:"ranking"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return cfg, eris.Wrap(err, "store: parse rank config")
	}

	if wrapper.Ranking.GenericBrand != "" {
		cfg.GenericBrand = wrapper.Ranking.GenericBrand
	}
	if len(wrapper.Ranking.QualifierPrefixes) > 0 {
		cfg.QualifierPrefixes = wrapper.Ranking.QualifierPrefixes
	}
	return cfg, nil
}

func (rc RankConfig) genericLower() string {
	return strings.ToLower(rc.GenericBrand)
}

var queryFolder = cases.Fold()

// normalizeQuery trims and case-folds a raw query string so predicate
// comparison is Unicode-correct rather than ASCII-only.
func normalizeQuery(q string) string {
	return queryFolder.String(strings.TrimSpace(q))
}

// escapeLike escapes LIKE wildcards in user input; patterns built from the
// result must carry ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// tierExpr builds the ranking CASE expression and its bind arguments for an
// already-normalized query. Lower tiers sort first:
//
//	0 generic brand + name prefix      5 name contains delimited word
//	1 exact barcode                    6 brand prefix
//	2 exact name                       7 name contains
//	3 qualified-variant name prefix    8 brand contains
//	4 name prefix                      9 pre-filter fallback
func (rc RankConfig) tierExpr(query, rawQuery string) (string, []any) {
	esc := escapeLike(query)
	prefix := esc + "%"
	contains := "%" + esc + "%"
	generic := strings.ToLower(rc.GenericBrand)

	var b strings.Builder
	var args []any

	b.WriteString("CASE\n")

	b.WriteString("\t\tWHEN LOWER(COALESCE(brand, '')) = ? AND LOWER(name) LIKE ? ESCAPE '\\' THEN 0\n")
	args = append(args, generic, prefix)

	b.WriteString("\t\tWHEN barcode = ? THEN 1\n")
	args = append(args, rawQuery)

	b.WriteString("\t\tWHEN LOWER(name) = ? THEN 2\n")
	args = append(args, query)

	if len(rc.QualifierPrefixes) > 0 {
		b.WriteString("\t\tWHEN ")
		for i, sep := range rc.QualifierPrefixes {
			if i > 0 {
				b.WriteString(" OR ")
			}
			b.WriteString("LOWER(name) LIKE ? ESCAPE '\\'")
			args = append(args, esc+escapeLike(strings.ToLower(sep))+"%")
		}
		b.WriteString(" THEN 3\n")
	}

	b.WriteString("\t\tWHEN LOWER(name) LIKE ? ESCAPE '\\' THEN 4\n")
	args = append(args, prefix)

	b.WriteString("\t\tWHEN LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(name) LIKE ? ESCAPE '\\' THEN 5\n")
	args = append(args, "% "+esc+" %", esc+" %")

	b.WriteString("\t\tWHEN LOWER(COALESCE(brand, '')) LIKE ? ESCAPE '\\' THEN 6\n")
	args = append(args, prefix)

	b.WriteString("\t\tWHEN LOWER(name) LIKE ? ESCAPE '\\' THEN 7\n")
	args = append(args, contains)

	b.WriteString("\t\tWHEN LOWER(COALESCE(brand, '')) LIKE ? ESCAPE '\\' THEN 8\n")
	args = append(args, contains)

	b.WriteString("\t\tELSE 9\n\tEND")

	return b.String(), args
}
