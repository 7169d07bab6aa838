// Package prompt builds the instruction text sent to the AI provider from a
// per-tool template, the user's profile and the tool parameters.
package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed templates/*.txt
var embedded embed.FS

// Tool identifies a conversational mode with its own template.
type Tool string

const (
	AnswerMaker   Tool = "answerMaker"
	ExerciseMaker Tool = "exerciseMaker"
	LearnerBuddy  Tool = "learnerBuddy"
	ProblemSolver Tool = "problemSolver"
)

// ErrUnknownTool is returned for a tool identifier outside the fixed set.
var ErrUnknownTool = errors.New("unknown tool")

var tools = []Tool{AnswerMaker, ExerciseMaker, LearnerBuddy, ProblemSolver}

// Tools returns every supported tool.
func Tools() []Tool {
	return append([]Tool(nil), tools...)
}

// ParseTool validates a tool identifier.
func ParseTool(s string) (Tool, error) {
	for _, t := range tools {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTool, s)
}

// Template slots.
const (
	SubjectSlot         = "[Specify Subject Here]"
	InstitutionSlot     = "{University_Name}"
	CourseSlot          = "{Course_Name}"
	SubjectNameSlot     = "{Subject_Name}"
	TopicsSlot          = "{Chapter_Topics}"
	SectionsDetailsSlot = "{Sections_Details}"
)

const defaultMarks = "1"

// Composer renders tool templates into provider prompts.
type Composer struct {
	templates fs.FS
}

// NewComposer returns a Composer over the built-in tool templates.
func NewComposer() *Composer {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err) // embedded path is fixed at compile time
	}
	return &Composer{templates: sub}
}

// NewComposerFS returns a Composer reading "<tool>.txt" templates from fsys.
func NewComposerFS(fsys fs.FS) *Composer {
	return &Composer{templates: fsys}
}

// Compose builds the prompt for tool. message is the user's free text; it
// fills the topic list of the exercise tool.
func (c *Composer) Compose(tool, message string, params Params, pc Context) (string, error) {
	t, err := ParseTool(tool)
	if err != nil {
		return "", err
	}

	raw, err := fs.ReadFile(c.templates, string(t)+".txt")
	if err != nil {
		return "", fmt.Errorf("load %s template: %w", t, err)
	}
	tmpl := NewTemplate(string(raw))

	subject := params.Subject.String()
	if subject != "" {
		tmpl.Set(SubjectSlot, subject)
	}

	switch t {
	case AnswerMaker:
		marks := params.Marks.String()
		if marks == "" {
			marks = defaultMarks
		}
		tmpl.Append(fmt.Sprintf("\nSTRICT INSTRUCTION: The answer must be suitable for a %s-mark question.", marks))
	case ExerciseMaker:
		tmpl.Set(InstitutionSlot, orDefault(pc.Institution, "General University"))
		tmpl.Set(CourseSlot, orDefault(pc.Course, "Degree Program"))
		tmpl.Set(SubjectNameSlot, orDefault(subject, "Academic Subject"))
		tmpl.Set(TopicsSlot, message)
		tmpl.Set(SectionsDetailsSlot, SectionBreakdown(params.ShortQty.Count(), params.MedQty.Count(), params.LongQty.Count()))
	}

	tmpl.Append(contextSuffix(pc))
	return tmpl.Render(), nil
}

type tier struct {
	section string
	kind    string
	marks   int
}

var tiers = [3]tier{
	{section: "A", kind: "Short", marks: 2},
	{section: "B", kind: "Medium", marks: 5},
	{section: "C", kind: "Long", marks: 10},
}

// SectionBreakdown describes the question paper layout for the exercise tool.
func SectionBreakdown(short, medium, long int) string {
	counts := [3]int{short, medium, long}
	lines := make([]string, len(tiers))
	for i, t := range tiers {
		lines[i] = fmt.Sprintf("- Section %s: %d %s Questions (%d Marks each)", t.section, counts[i], t.kind, t.marks)
	}
	return strings.Join(lines, "\n")
}

func contextSuffix(pc Context) string {
	return fmt.Sprintf("\nContext: Student at %s, Semester %s, Course: %s. Goal: Study Smart, Not Hard.",
		orDefault(pc.Institution, "University"),
		orDefault(pc.Term, "N/A"),
		orDefault(pc.Course, "BSc CS"),
	)
}

// WithQuestion combines a composed prompt with the user's message into the
// text sent to the provider.
func WithQuestion(prompt, message string) string {
	return prompt + "\n\nUser Question: " + message + "\n\nStrictly follow the response guidelines."
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}
