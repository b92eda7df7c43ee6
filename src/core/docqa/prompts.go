package docqa

import (
	"fmt"
	"strings"
	"text/template"
)

const (
	answerPromptTmpl = `Answer in ONE sentence.
Use ONLY words that appear in the context.
Do NOT paraphrase.

Context:
{{.Context}}

Question:
{{.Question}}
`

	verifyPromptTmpl = `Context:
{{.Context}}

Question:
{{.Question}}

Answer:
{{.Answer}}

Does the context clearly contain the same factual information as the answer, even if phrased differently?
{{if .Strict}}
Reply with exactly one word: SUPPORTED or UNSUPPORTED.
{{else}}
Reply ONLY YES or NO.
{{end}}`

	suggestPromptTmpl = `Generate {{.Count}} NEW factual questions.

Rules:
- Answerable ONLY from the text
- Do NOT repeat these questions:
{{- range .Asked}}
  - {{.}}
{{- else}} (none yet){{end}}
- One question per line
- End with '?'

Text:
{{.Text}}
`
)

var (
	answerPrompt  = template.Must(template.New("answer").Parse(answerPromptTmpl))
	verifyPrompt  = template.Must(template.New("verify").Parse(verifyPromptTmpl))
	suggestPrompt = template.Must(template.New("suggest").Parse(suggestPromptTmpl))
)

type answerData struct {
	Context  string
	Question string
}

type verifyData struct {
	Context  string
	Question string
	Answer   string
	Strict   bool
}

type suggestData struct {
	Count int
	Asked []string
	Text  string
}

func render(t *template.Template, data interface{}) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", t.Name(), err)
	}
	return sb.String(), nil
}
