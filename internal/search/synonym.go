package search

// Synonyms maps a normalized term to spellings that postings use for the same
// thing. Lookups go both ways through Alternatives.
var Synonyms = map[string][]string{
	"go":         {"golang"},
	"postgresql": {"postgres"},
	"javascript": {"js"},
	"typescript": {"ts"},
	"kubernetes": {"k8s"},
	"frontend":   {"front end", "front-end"},
	"backend":    {"back end", "back-end"},
	"fullstack":  {"full stack", "full-stack"},
	"devops":     {"sre", "site reliability"},
	"ml":         {"machine learning"},
}

var reverse = buildReverse()

func buildReverse() map[string][]string {
	out := make(map[string][]string, len(Synonyms)*2)
	for k, syns := range Synonyms {
		for _, s := range syns {
			out[s] = append(out[s], k)
		}
	}
	return out
}

// Alternatives returns term followed by its known synonyms, without duplicates.
func Alternatives(term string) []string {
	if term == "" {
		return []string{}
	}
	out := []string{term}
	seen := map[string]struct{}{term: {}}
	add := func(vals []string) {
		for _, v := range vals {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	add(Synonyms[term])
	for _, canonical := range reverse[term] {
		add([]string{canonical})
		add(Synonyms[canonical])
	}
	return out
}
