package nl2sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

const (
	noLimitPolicy = "Unless the user explicitly asks for a number of results (for example 'top 5' or 'limit 5'), " +
		"the SQL query MUST NOT include a LIMIT, TOP or FETCH FIRST clause. Return all results."
	boundedPolicy = "The question asks for a specific number of results. Limit the query to exactly that many rows."
)

const promptTemplate = `You are an AI assistant that converts natural-language questions into SQL queries for a {{.dialect}} database.
Given the question, write one syntactically correct {{.dialect}} query that answers it.
Use only the tables and columns described below and never query columns that do not exist.
Return only the SQL query, with no explanation.

Schema:
{{.schema}}

Question: {{.question}}

Additional instruction: {{.policy}}
`

var questionPrompt = prompts.NewPromptTemplate(promptTemplate, []string{"dialect", "schema", "question", "policy"})

const numberWords = `\d+|one|two|three|four|five|six|seven|eight|nine|ten|twenty|fifty|hundred|` +
	`um|uma|dois|duas|tr[eê]s|quatro|cinco|seis|sete|oito|nove|dez|vinte|cem`

var quantityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|[^\p{L}\d])(?:top|limit|limite|first|last|bottom|primeir[oa]s|[uú]ltim[oa]s)\s+(?:` + numberWords + `)(?:$|[^\p{L}\d])`),
	regexp.MustCompile(`(?i)(?:^|[^\p{L}\d])(?:\d+)\s+(?:most|highest|lowest|largest|smallest|best|worst|biggest|maiores|menores|melhores|piores)(?:$|[^\p{L}])`),
}

// HasQuantityLanguage reports whether the question explicitly bounds the
// number of results, e.g. "top 3" or "primeiros 10".
func HasQuantityLanguage(question string) bool {
	for _, pattern := range quantityPatterns {
		if pattern.MatchString(question) {
			return true
		}
	}
	return false
}

// BuildPrompt composes the instruction, schema, question and row-limit policy
// sent to the language model.
func BuildPrompt(req Request) (string, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return "", fmt.Errorf("question is required")
	}
	dialect := strings.TrimSpace(req.Dialect)
	if dialect == "" {
		dialect = "SQL"
	}
	schema := strings.TrimSpace(req.Schema)
	if schema == "" {
		schema = "(no tables found)"
	}
	policy := noLimitPolicy
	if HasQuantityLanguage(question) {
		policy = boundedPolicy
	}

	prompt, err := questionPrompt.Format(map[string]any{
		"dialect":  dialect,
		"schema":   schema,
		"question": question,
		"policy":   policy,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return prompt, nil
}
