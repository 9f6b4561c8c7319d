package synthesizer

import (
	"encoding/json"
	"regexp"
	"strings"

	"notebook-rag/internal/models"
)

var (
	fencedJSONRe    = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	numberedLineRe  = regexp.MustCompile(`^\d+[.)]\s*(.+)$`)
	bulletLineRe    = regexp.MustCompile(`^[-*•]\s*(.+)$`)
	interrogativeRe = regexp.MustCompile(`(?i)^(what|how|why|when|where|who|which|can|could|would|should|do|does|did|is|are)\b`)
)

// parseAnswer recovers an AnswerEnvelope from raw model output. Attempts
// run in order, first success wins: direct JSON parse, fenced code
// blocks, balanced brace substrings, then a heuristic fallback that is
// guaranteed to produce an envelope.
func parseAnswer(raw string) models.AnswerEnvelope {
	if env, ok := tryParse(raw); ok {
		return env
	}
	for _, block := range fencedJSONRe.FindAllStringSubmatch(raw, -1) {
		if env, ok := tryParse(block[1]); ok {
			return env
		}
	}
	for _, cand := range braceCandidates(raw) {
		if env, ok := tryParse(cand); ok {
			return env
		}
	}
	return fallbackEnvelope(raw)
}

// tryParse accepts only a JSON mapping; scalar or array JSON is rejected
// so the cascade keeps looking.
func tryParse(s string) (models.AnswerEnvelope, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &m); err != nil {
		return models.AnswerEnvelope{}, false
	}

	var env models.AnswerEnvelope
	if r, ok := m["response"].(string); ok {
		env.Response = r
	}
	if qs, ok := m["questions"].([]any); ok {
		for _, q := range qs {
			if s, ok := q.(string); ok {
				env.Questions = append(env.Questions, s)
			}
		}
	}
	return env, true
}

// braceCandidates returns the top-level balanced {...} substrings.
func braceCandidates(raw string) []string {
	var cands []string
	depth := 0
	start := -1
	for i, r := range raw {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					cands = append(cands, raw[start:i+1])
					start = -1
				}
			}
		}
	}
	return cands
}

// fallbackEnvelope builds an envelope from plain prose: the first
// paragraph becomes the response and question-like lines become the
// follow-ups, padded with generics by the repair step.
func fallbackEnvelope(raw string) models.AnswerEnvelope {
	response := ""
	for _, para := range strings.Split(raw, "\n\n") {
		if trimmed := strings.TrimSpace(para); trimmed != "" {
			response = trimmed
			break
		}
	}
	return models.AnswerEnvelope{
		Response:  response,
		Questions: scanQuestions(raw),
	}
}

// scanQuestions collects up to three distinct question-like lines:
// numbered or bulleted lines containing a question mark, quoted
// questions, or lines led by an interrogative word.
func scanQuestions(raw string) []string {
	var questions []string
	seen := map[string]bool{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "?") {
			continue
		}

		candidate := ""
		if m := numberedLineRe.FindStringSubmatch(line); m != nil {
			candidate = m[1]
		} else if m := bulletLineRe.FindStringSubmatch(line); m != nil {
			candidate = m[1]
		} else if strings.HasPrefix(line, `"`) {
			candidate = strings.Trim(line, `"`)
		} else if interrogativeRe.MatchString(line) {
			candidate = line
		}

		candidate = strings.TrimSpace(strings.Trim(candidate, `"`))
		if candidate == "" || seen[candidate] {
			continue
		}
		seen[candidate] = true
		questions = append(questions, candidate)
		if len(questions) == 3 {
			break
		}
	}
	return questions
}
