package interview

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	femaleIndicators = []string{"נקבה", "נקבית", "בנקבה", "female"}

	genderWordsRe = regexp.MustCompile(`(?i)נקבה|זכר|בנקבה|בזכר|female|male`)
	fillerWordsRe = regexp.MustCompile(`(?i)קוראים לי|שמי|אני|שם`)
	tokenSplitRe  = regexp.MustCompile(`[\s,،.]+`)
)

// ParsePersonalization extracts a name and self-reported grammatical gender
// from a free-text introduction. It is a heuristic: gender defaults to male
// unless a female indicator appears, and the name is the first surviving
// token after filler words are stripped. ok is false when no usable name
// remains, in which case the caller should re-ask.
func ParsePersonalization(raw string) (name string, gender Gender, ok bool) {
	lower := strings.ToLower(raw)

	gender = GenderMale
	for _, ind := range femaleIndicators {
		if strings.Contains(lower, ind) {
			gender = GenderFemale
			break
		}
	}

	clean := genderWordsRe.ReplaceAllString(raw, "")
	clean = fillerWordsRe.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(clean)

	for _, w := range tokenSplitRe.Split(clean, -1) {
		if utf8.RuneCountInString(w) > 1 {
			return w, gender, true
		}
	}
	return "", gender, false
}
