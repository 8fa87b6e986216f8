package assistant

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/portfolio-bff/backend/internal/portfolio"
)

var promptTemplate = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
	"join":  strings.Join,
}).Parse(`You are an AI assistant for {{.Ctx.Name}}'s portfolio website.

DETAILED PORTFOLIO INFORMATION:

ABOUT {{upper .Ctx.Name}}:
Name: {{.Ctx.Name}}
Role: {{.Ctx.Role}}

SKILLS:
{{join .Ctx.Skills "\n"}}

PROJECTS:
{{range $i, $p := .Ctx.Projects}}{{if $i}}

{{end}}- {{$p.Name}}: {{$p.Description}}
  Technologies: {{$p.Technologies}}
  Link: {{$p.Link}}{{end}}

PROFESSIONAL EXPERIENCE:
{{range $i, $e := .Ctx.Experience}}{{if $i}}

{{end}}- {{$e.Position}} at {{$e.Company}} ({{$e.Duration}})
  {{$e.Responsibilities}}{{end}}

EDUCATION:
{{range $i, $e := .Ctx.Education}}{{if $i}}

{{end}}- {{$e.Degree}} from {{$e.Institution}} ({{$e.Year}}){{end}}

AI FEATURES IN PORTFOLIO:
{{.Ctx.AIFeatures}}

CONTACT INFORMATION:
{{.Ctx.ContactInfo}}

WEBSITE:
{{.Ctx.Website}}

IMPORTANT RULES:
1. ALWAYS provide specific information directly from the portfolio context above
2. NEVER start your response with "visit the website" or similar phrases
3. Respond first with detailed information and only mention the website at the end of your response
4. Always include actual portfolio details (projects, skills, experience) in your response
5. Only suggest visiting the website for more details after providing an informative answer
6. For general greetings, respond in a friendly and professional manner
7. IF THE QUERY IS NOT ABOUT {{upper .Ctx.Name}}'S PORTFOLIO, SKILLS, PROJECTS, OR EXPERIENCE, respond with: "{{.Refusal}}"
8. Use markdown formatting to make your responses more readable when appropriate

User's question: {{.Message}}

Respond in a helpful, professional tone with SPECIFIC DETAILS from the portfolio information above. Do NOT just refer them to the website.
`))

// PromptMarker is the opening of every built prompt for pc.
func PromptMarker(pc *portfolio.Context) string {
	return fmt.Sprintf("You are an AI assistant for %s's portfolio", pc.Name)
}

// IsAugmented reports whether text already is a built prompt.
func IsAugmented(text string, pc *portfolio.Context) bool {
	return strings.Contains(text, PromptMarker(pc))
}

// BuildPrompt renders the grounding prompt for message. The output depends
// only on its inputs.
func BuildPrompt(message string, pc *portfolio.Context) string {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, struct {
		Ctx     *portfolio.Context
		Message string
		Refusal string
	}{
		Ctx:     pc,
		Message: message,
		Refusal: OffTopicReply(pc),
	})
	if err != nil {
		// The template only reads plain fields; Execute cannot fail on a
		// non-nil context.
		panic(fmt.Sprintf("assistant: render prompt: %v", err))
	}
	return buf.String()
}

func GreetingReply(pc *portfolio.Context) string {
	return fmt.Sprintf("Hi there! I'm %s's portfolio assistant. I can help answer questions about his skills, projects, and experience. How can I assist you today?", pc.Name)
}

func OffTopicReply(pc *portfolio.Context) string {
	return fmt.Sprintf("I'm sorry, but I'm only designed to help with questions about %s's portfolio, skills, projects, and experience. I can't assist with other topics. Feel free to ask me anything about %s's work!", pc.Name, pc.Name)
}
