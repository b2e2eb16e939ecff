package job

import (
	"regexp"
	"sort"
	"strings"
)

var techSkills = []string{
	"python", "java", "javascript", "typescript", "c++", "c#", "ruby", "go",
	"react", "angular", "vue", "node.js", "express", "fastapi", "django", "flask",
	"spring", "pytorch", "tensorflow", "sklearn", "pandas", "numpy",
	"postgresql", "mysql", "mongodb", "redis", "elasticsearch",
	"aws", "azure", "gcp", "docker", "kubernetes", "jenkins",
	"git", "linux", "rest api", "graphql", "microservices",
}

var skillPatterns = compileSkillPatterns(techSkills)

// compileSkillPatterns builds word-boundary matchers. Skills ending in a symbol
// (c++, c#) are followed by a non-word byte or the end of text instead of \b.
func compileSkillPatterns(skills []string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(skills))
	for _, s := range skills {
		q := regexp.QuoteMeta(s)
		tail := `\b`
		if last := s[len(s)-1]; !isWordByte(last) {
			tail = `(?:[^\w]|$)`
		}
		out[s] = regexp.MustCompile(`\b` + q + tail)
	}
	return out
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// ExtractSkills returns the known technology skills mentioned in description, sorted.
func ExtractSkills(description string) []string {
	text := strings.ToLower(description)
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	found := make([]string, 0)
	for _, s := range techSkills {
		if skillPatterns[s].MatchString(text) {
			found = append(found, s)
		}
	}
	sort.Strings(found)
	return found
}

var (
	seniorWords = []string{"senior", "lead", "principal", "staff", "architect"}
	entryWords  = []string{"junior", "entry", "associate", "graduate"}
)

// InferExperienceLevel reads seniority hints from the title and description.
func InferExperienceLevel(title, description string) ExperienceLevel {
	text := strings.ToLower(title + " " + description)
	for _, w := range seniorWords {
		if strings.Contains(text, w) {
			return LevelSenior
		}
	}
	for _, w := range entryWords {
		if strings.Contains(text, w) {
			return LevelEntry
		}
	}
	return LevelMid
}
