package redact

import "regexp"

const placeholder = "[REDACTED]"

type rule struct {
	name string
	re   *regexp.Regexp
}

// rules are applied in order; provider-specific shapes come before the
// generic assignment patterns so that counts name the most specific kind.
var rules = []rule{
	{"private-key", regexp.MustCompile(`-----BEGIN\s+(?:RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)},
	{"bearer", regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`)},
	{"google-api-key", regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`)},
	{"github-token", regexp.MustCompile(`(?:gh[pousr]_[A-Za-z0-9_]{36,}|github_pat_[A-Za-z0-9_]{22,})`)},
	{"slack-token", regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`)},
	{"anthropic-key", regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`)},
	{"openai-key", regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9]{20,}`)},
	{"aws-access-key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"aws-secret", regexp.MustCompile(`(?i)aws[_-]?secret[_-]?access[_-]?key\s*[:=]\s*["']?[A-Za-z0-9/+=]{40}["']?`)},
	{"api-key", regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?[A-Za-z0-9/+=_-]{20,}["']?`)},
	{"secret", regexp.MustCompile(`(?i)(?:secret|token|password|passwd|credential)\s*[:=]\s*["'][^"']{8,}["']`)},
}

// Result describes what a redaction pass replaced.
type Result struct {
	Text   string
	Counts map[string]int
}

// Total returns the number of replacements across all rules.
func (r Result) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// Scan replaces detected secrets in text and reports per-rule counts.
func Scan(text string) Result {
	res := Result{Text: text}
	for _, r := range rules {
		matches := r.re.FindAllStringIndex(res.Text, -1)
		if len(matches) == 0 {
			continue
		}
		if res.Counts == nil {
			res.Counts = make(map[string]int)
		}
		res.Counts[r.name] += len(matches)
		res.Text = r.re.ReplaceAllLiteralString(res.Text, placeholder)
	}
	return res
}
