package cohort

import (
	"strings"
	"unicode/utf8"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, word := range strings.Fields(`
		i want patients who are is the a an and or but in on at to for of with by from
		as that this it be have has had was were been being will would should could
		may might must can do does did not no yes all any some there their they them
		these those which what when where why how received`) {
		stopWords[word] = struct{}{}
	}
}

var separators = strings.NewReplacer(",", " ", ".", " ")

// ExtractKeywords lowercases a criterion, splits it on whitespace, commas and
// periods, and drops stop words and tokens of two characters or fewer.
func ExtractKeywords(criterion string) []string {
	words := strings.Fields(separators.Replace(strings.ToLower(criterion)))
	keywords := make([]string, 0, len(words))
	for _, word := range words {
		if utf8.RuneCountInString(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}

// IsStopWord reports whether word is ignored by ExtractKeywords.
func IsStopWord(word string) bool {
	_, ok := stopWords[strings.ToLower(word)]
	return ok
}

type criterion struct {
	original string
	keywords []string
}

// compileCriteria keeps criteria order and drops criteria with no keywords.
func compileCriteria(criteria []string) []criterion {
	compiled := make([]criterion, 0, len(criteria))
	for _, text := range criteria {
		keywords := ExtractKeywords(text)
		if len(keywords) == 0 {
			continue
		}
		compiled = append(compiled, criterion{original: text, keywords: keywords})
	}
	return compiled
}

// matchPatient returns the evidence for a patient that satisfies every
// criterion. Any one keyword satisfies a criterion. With no criteria nothing
// matches.
func matchPatient(fullText string, criteria []criterion) ([]string, bool) {
	if len(criteria) == 0 {
		return nil, false
	}
	text := strings.ToLower(fullText)
	reasons := make([]string, 0, len(criteria))
	for _, c := range criteria {
		var found []string
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				found = append(found, kw)
			}
		}
		if len(found) == 0 {
			return nil, false
		}
		reasons = append(reasons, "Matches '"+c.original+"' (found: "+strings.Join(found, ", ")+")")
	}
	return reasons, true
}
