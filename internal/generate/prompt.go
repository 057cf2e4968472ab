// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"strings"
	"text/template"
)

// discoveryPromptTmpl asks for related concepts in the pipe-separated line
// format read by ParseCandidates.
var discoveryPromptTmpl = template.Must(template.New("discovery").Parse(`Generate {{.Count}} concepts closely related to "{{.Seed}}".
{{- if .Disciplines}}
Restrict the concepts to these disciplines: {{.Disciplines}}.
{{- else}}
Prefer concepts from several different disciplines.
{{- end}}
{{- if .Exclude}}
Do not propose any of: {{.Exclude}}.
{{- end}}

Output one concept per line in the form:
name|discipline|relation|cross_principle

- name: the concept name
- discipline: the discipline it belongs to (e.g. physics, computer science)
- relation: how it relates to "{{.Seed}}" (e.g. foundation, application, extension, analogy)
- cross_principle: one sentence on the shared principle when the disciplines differ; leave empty otherwise

Output only the lines, with no numbering and no other text.
`))

// reasoningPromptTmpl asks for a short justification of one relation as JSON.
var reasoningPromptTmpl = template.Must(template.New("reasoning").Parse(`Assess the claimed relation between two concepts.

Concept A: {{.From}}
Concept B: {{.To}}
Relation: {{.Relation}}

Explain in two or three sentences whether and how A and B are related this way, then rate how credible the relation is from 0.0 to 1.0.

Respond with a JSON object and nothing else:
{"logical_reasoning": "...", "credibility_score": 0.0}
`))

const systemPrompt = "You are an academic concept generation assistant. Answer precisely and follow the requested output format."

func renderDiscoveryPrompt(req Request) (string, error) {
	var buf bytes.Buffer
	err := discoveryPromptTmpl.Execute(&buf, struct {
		Seed        string
		Count       int
		Disciplines string
		Exclude     string
	}{
		Seed:        req.Seed,
		Count:       req.Count,
		Disciplines: strings.Join(req.Disciplines, ", "),
		Exclude:     strings.Join(req.Exclude, ", "),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderReasoningPrompt(from, to, relation string) (string, error) {
	var buf bytes.Buffer
	err := reasoningPromptTmpl.Execute(&buf, struct{ From, To, Relation string }{from, to, relation})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
