package dedup

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type expansion struct {
	re   *regexp.Regexp
	full string
}

// Whole-word, case-insensitive abbreviation expansions applied to titles.
var titleExpansions = []expansion{
	// Seniority
	{regexp.MustCompile(`(?i)\bSr\.?\b`), "Senior"},
	{regexp.MustCompile(`(?i)\bJr\.?\b`), "Junior"},
	{regexp.MustCompile(`(?i)\bMgr\.?\b`), "Manager"},
	{regexp.MustCompile(`(?i)\bDir\.?\b`), "Director"},
	{regexp.MustCompile(`(?i)\bVP\b`), "Vice President"},
	{regexp.MustCompile(`(?i)\bSVP\b`), "Senior Vice President"},
	{regexp.MustCompile(`(?i)\bEVP\b`), "Executive Vice President"},
	{regexp.MustCompile(`(?i)\bCTO\b`), "Chief Technology Officer"},
	{regexp.MustCompile(`(?i)\bCEO\b`), "Chief Executive Officer"},
	{regexp.MustCompile(`(?i)\bCFO\b`), "Chief Financial Officer"},
	{regexp.MustCompile(`(?i)\bCOO\b`), "Chief Operating Officer"},

	// Roles
	{regexp.MustCompile(`(?i)\bEng\.?\b`), "Engineer"},
	{regexp.MustCompile(`(?i)\bDev\.?\b`), "Developer"},
	{regexp.MustCompile(`(?i)\bSWE\b`), "Software Engineer"},
	{regexp.MustCompile(`(?i)\bQA\b`), "Quality Assurance"},
	{regexp.MustCompile(`(?i)\bBA\b`), "Business Analyst"},
	{regexp.MustCompile(`(?i)\bPM\b`), "Product Manager"},
	{regexp.MustCompile(`(?i)\bTPM\b`), "Technical Program Manager"},
	{regexp.MustCompile(`(?i)\bEM\b`), "Engineering Manager"},
	{regexp.MustCompile(`(?i)\bSDE\b`), "Software Development Engineer"},

	// Common tech terms
	{regexp.MustCompile(`(?i)\bIT\b`), "Information Technology"},
	{regexp.MustCompile(`(?i)\bCS\b`), "Computer Science"},
	{regexp.MustCompile(`(?i)\bUI\b`), "User Interface"},
	{regexp.MustCompile(`(?i)\bUX\b`), "User Experience"},
	{regexp.MustCompile(`(?i)\bML\b`), "Machine Learning"},
	{regexp.MustCompile(`(?i)\bAI\b`), "Artificial Intelligence"},
	{regexp.MustCompile(`(?i)\bAPI\b`), "Application Programming Interface"},
	{regexp.MustCompile(`(?i)\bDB\b`), "Database"},
	{regexp.MustCompile(`(?i)\bOps\b`), "Operations"},
	{regexp.MustCompile(`(?i)\bDevOps\b`), "Development Operations"},
	{regexp.MustCompile(`(?i)\bSRE\b`), "Site Reliability Engineer"},
	{regexp.MustCompile(`(?i)\bFE\b`), "Frontend"},
	{regexp.MustCompile(`(?i)\bBE\b`), "Backend"},
	{regexp.MustCompile(`(?i)\bFS\b`), "Full Stack"},
}

// seniorityLevels maps seniority phrasing to an ordinal rank.
var seniorityLevels = map[string]int{
	"intern":                   0,
	"internship":               0,
	"entry":                    1,
	"entry level":              1,
	"junior":                   2,
	"associate":                3,
	"mid":                      4,
	"mid level":                4,
	"senior":                   5,
	"staff":                    6,
	"principal":                7,
	"lead":                     7,
	"manager":                  8,
	"senior manager":           9,
	"director":                 10,
	"senior director":          11,
	"vice president":           12,
	"senior vice president":    13,
	"executive vice president": 14,
	"c-level":                  15,
	"chief":                    15,
}

var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
	"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
	"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming", "DC": "District of Columbia",
}

var citySynonyms = []expansion{
	{regexp.MustCompile(`(?i)\bnyc\b`), "New York"},
	{regexp.MustCompile(`(?i)\bsf\b`), "San Francisco"},
	{regexp.MustCompile(`(?i)\bla\b`), "Los Angeles"},
	{regexp.MustCompile(`(?i)\bdc\b`), "Washington"},
	{regexp.MustCompile(`(?i)\bphilly\b`), "Philadelphia"},
	{regexp.MustCompile(`(?i)\bchi-town\b`), "Chicago"},
	{regexp.MustCompile(`(?i)\bchi\b`), "Chicago"},
}

// State expansion only fires after a comma ("Seattle, WA"), so plain
// words like "in" or "or" in free-text locations are left alone.
var stateExpansions = buildStateExpansions()

func buildStateExpansions() []expansion {
	abbrevs := make([]string, 0, len(stateNames))
	for ab := range stateNames {
		abbrevs = append(abbrevs, ab)
	}
	sort.Strings(abbrevs)

	out := make([]expansion, 0, len(abbrevs))
	for _, ab := range abbrevs {
		out = append(out, expansion{
			re:   regexp.MustCompile(`,\s*` + ab + `\b`),
			full: ", " + stateNames[ab],
		})
	}
	return out
}

var companySuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bInc\.?$`),
	regexp.MustCompile(`(?i)\bLLC\.?$`),
	regexp.MustCompile(`(?i)\bLtd\.?$`),
	regexp.MustCompile(`(?i)\bCorp\.?$`),
	regexp.MustCompile(`(?i)\bCorporation$`),
	regexp.MustCompile(`(?i)\bLimited$`),
	regexp.MustCompile(`(?i)\bCompany$`),
	regexp.MustCompile(`(?i)\bCo\.?$`),
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "as": {}, "is": {}, "was": {}, "are": {}, "were": {},
	"been": {}, "be": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "must": {}, "can": {},
}

var (
	remoteRe       = regexp.MustCompile(`(?i)\b(remote|work from home|wfh)\b`)
	nonTitleCharRe = regexp.MustCompile(`[^\w\s\-/()&]`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// NormalizeTitle canonicalizes a job title for comparison: title case,
// abbreviations expanded, punctuation outside the whitelist stripped,
// slashes padded so "ML/AI" and "ML / AI" tokenize the same way.
func NormalizeTitle(title string) string {
	t := strings.TrimSpace(title)
	if t == "" {
		return ""
	}

	t = cases.Title(language.English).String(t)

	for _, e := range titleExpansions {
		t = e.re.ReplaceAllString(t, e.full)
	}

	t = collapseWhitespace(t)
	t = nonTitleCharRe.ReplaceAllString(t, "")
	t = strings.ReplaceAll(t, "/", " / ")
	return collapseWhitespace(t)
}

// NormalizeLocation canonicalizes a location string. Anything that reads
// as remote/work-from-home collapses to the literal "Remote".
func NormalizeLocation(location string) string {
	l := strings.TrimSpace(location)
	if l == "" {
		return ""
	}

	if remoteRe.MatchString(l) {
		return "Remote"
	}

	for _, e := range citySynonyms {
		l = e.re.ReplaceAllString(l, e.full)
	}
	for _, e := range stateExpansions {
		l = e.re.ReplaceAllString(l, e.full)
	}

	return collapseWhitespace(l)
}

// NormalizeCompany canonicalizes a company name; two spellings of the same
// company ("Acme Inc." vs "Acme") must land on the same value because it is
// the dedup partition key.
func NormalizeCompany(company string) string {
	c := strings.TrimSpace(company)
	if c == "" {
		return ""
	}

	for _, re := range companySuffixes {
		c = re.ReplaceAllString(c, "")
	}

	c = collapseWhitespace(c)
	return cases.Title(language.English).String(c)
}

// KeyTerms extracts the meaningful words of a title as a set: normalized,
// seniority words stripped, short words and stop words dropped.
func KeyTerms(title string) map[string]struct{} {
	t := NormalizeTitle(title)

	for level := range seniorityLevels {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(level) + `\b`)
		t = re.ReplaceAllString(t, "")
	}

	terms := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(t)) {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		terms[w] = struct{}{}
	}
	return terms
}

// SeniorityLevel extracts a 0-15 seniority rank from a title,
// longest phrase first so "senior manager" wins over "manager".
func SeniorityLevel(title string) (int, bool) {
	lower := strings.ToLower(title)

	phrases := make([]string, 0, len(seniorityLevels))
	for p := range seniorityLevels {
		phrases = append(phrases, p)
	}
	sort.Slice(phrases, func(i, j int) bool {
		if len(phrases[i]) != len(phrases[j]) {
			return len(phrases[i]) > len(phrases[j])
		}
		return phrases[i] < phrases[j]
	})

	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return seniorityLevels[p], true
		}
	}
	return 0, false
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
