// Package prompt renders the fixed natural-language instructions sent to the
// completion service. All user input is embedded verbatim; Compose is the only
// place prompt text is assembled, so an escaping pass can be added here without
// touching call sites. Until then any prompt-injection mitigation is absent.
package prompt

import (
	"fmt"
	"strings"

	"github.com/careergurulabs/careerguru/internal/conversation"
)

// Field names accepted by the templates.
const (
	FieldRole        = "role"
	FieldPreparation = "preparation"
	FieldQuestion    = "question"
	FieldResumeText  = "resume_text"
)

// MissingFieldError reports a required template field that was empty or absent.
type MissingFieldError struct {
	Feature conversation.Feature
	Field   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("prompt %s: required field %q is empty", e.Feature, e.Field)
}

var requiredFields = map[conversation.Feature][]string{
	conversation.FeatureMockInterview:  {FieldRole, FieldPreparation, FieldQuestion},
	conversation.FeatureCareerExplorer: {FieldRole, FieldQuestion},
	conversation.FeatureResumeFeedback: {FieldResumeText},
}

// RequiredFields returns the field names a feature's template needs, in
// render order.
func RequiredFields(feature conversation.Feature) []string {
	f := requiredFields[feature]
	out := make([]string, len(f))
	copy(out, f)
	return out
}

// Compose renders the template for feature with the given field values. Every
// required field must be a non-empty string after trimming; otherwise a
// *MissingFieldError is returned and nothing is rendered.
func Compose(feature conversation.Feature, fields map[string]string) (string, error) {
	required, ok := requiredFields[feature]
	if !ok {
		return "", fmt.Errorf("prompt: unknown feature %q", feature)
	}
	for _, name := range required {
		if strings.TrimSpace(fields[name]) == "" {
			return "", &MissingFieldError{Feature: feature, Field: name}
		}
	}

	switch feature {
	case conversation.FeatureMockInterview:
		return renderMockInterview(fields[FieldRole], fields[FieldPreparation], fields[FieldQuestion]), nil
	case conversation.FeatureCareerExplorer:
		return renderCareerExplorer(fields[FieldRole], fields[FieldQuestion]), nil
	default:
		return renderResumeFeedback(fields[FieldResumeText]), nil
	}
}

func renderMockInterview(role, preparation, question string) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful AI career coach.\n")
	fmt.Fprintf(&sb, "The user wants to get a job as a %s and is preparing with: %s.\n", role, preparation)
	sb.WriteString("Engage in a mock interview.\n")
	fmt.Fprintf(&sb, "User: %s\n", question)
	sb.WriteString("AI:")
	return sb.String()
}

func renderCareerExplorer(role, question string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a career guidance AI. The user is interested in the role: '%s'.\n", role)
	fmt.Fprintf(&sb, "Question: '%s'\n", question)
	sb.WriteString("Provide a helpful answer.")
	return sb.String()
}

func renderResumeFeedback(resumeText string) string {
	var sb strings.Builder
	sb.WriteString("You are a resume reviewer AI. Analyze this resume and give feedback:\n")
	sb.WriteString("- Clarity, formatting\n")
	sb.WriteString("- Strengths\n")
	sb.WriteString("- Relevance to tech roles\n")
	sb.WriteString("- Suggestions\n")
	fmt.Fprintf(&sb, "Resume: %s", resumeText)
	return sb.String()
}
