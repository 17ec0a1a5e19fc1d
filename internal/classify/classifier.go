package classify

import (
	"regexp"
	"strings"

	"DocHarvester/internal/domain"
)

// Rule binds one case-insensitive title pattern to a document type.
type Rule struct {
	Pattern *regexp.Regexp
	Type    domain.DocumentType
}

// Classifier applies an ordered rule list; the first matching rule wins.
// The order is a documented contract: specific appraisal/information phrases
// must be tested before the generic proposal and abstract patterns, or
// titles such as "Project Appraisal Document" would fall through to a
// broader rule. Reordering changes output.
type Classifier struct {
	rules []Rule
}

// DefaultRules returns the built-in rule table, most specific first:
//  1. PAD  — project/program appraisal document, standalone "PAD"
//  2. PID  — project information document, standalone "PID", PID/ISDS,
//     concept- or appraisal-stage sheets
//  3. LoanProposal    — loan proposal / loan contract titles
//  4. ProjectProposal — project proposal, generic proposal document
//  5. ProjectAbstract — abstract, synthesis (incl. the "syntheis" typo
//     seen in source metadata), síntesis, TC abstract
func DefaultRules() []Rule {
	return []Rule{
		{regexp.MustCompile(`(?i)\b(project|program)\s+appraisal\s+document\b|\bpad\b`), domain.TypePAD},
		{regexp.MustCompile(`(?i)\bproject\s+information\s+document\b|\bpid\b|pid\s*/\s*isds|(concept|appraisal)\s*stage`), domain.TypePID},
		{regexp.MustCompile(`(?i)\bloan\s+(proposal|contract)\b`), domain.TypeLoanProposal},
		{regexp.MustCompile(`(?i)\bproject\s+proposal\b|\bproposal\s+document\b`), domain.TypeProjectProposal},
		{regexp.MustCompile(`(?i)\babstract\b|\bsynthe?is\b|\bsynthesis\b|\bs[ií]ntesis\b`), domain.TypeProjectAbstract},
	}
}

// New builds a classifier over an explicit rule table. Rules are copied;
// the classifier is read-only after construction.
func New(rules []Rule) *Classifier {
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &Classifier{rules: copied}
}

// Classify maps a document title to its type. Pure function of the title
// and the rule table; unmatched titles yield Unknown.
func (c *Classifier) Classify(title string) domain.DocumentType {
	for _, rule := range c.rules {
		if rule.Pattern.MatchString(title) {
			return rule.Type
		}
	}
	return domain.TypeUnknown
}

// Types returns the distinct document types the rule table can assign, in
// rule order. Used to shape summary columns.
func (c *Classifier) Types() []domain.DocumentType {
	seen := map[domain.DocumentType]struct{}{}
	var out []domain.DocumentType
	for _, rule := range c.rules {
		if _, dup := seen[rule.Type]; dup {
			continue
		}
		seen[rule.Type] = struct{}{}
		out = append(out, rule.Type)
	}
	return out
}

// NormalizeLanguage reduces free-form language metadata to a lower-case
// two-letter code where recognizable; unknown values collapse to "xx".
// Kept separate from document-type classification: language is a filter,
// not part of the type.
func NormalizeLanguage(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case v == "":
		return "xx"
	case v == "en" || strings.Contains(v, "english"):
		return "en"
	case v == "es" || strings.Contains(v, "spanish") || strings.Contains(v, "español") || strings.Contains(v, "espanol"):
		return "es"
	case v == "fr" || strings.Contains(v, "french") || strings.Contains(v, "français") || strings.Contains(v, "francais"):
		return "fr"
	case v == "pt" || strings.Contains(v, "portuguese") || strings.Contains(v, "português") || strings.Contains(v, "portugues"):
		return "pt"
	case len(v) == 2:
		return v
	default:
		return "xx"
	}
}
