package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
)

const retrievedSnippetLimit = 4

// PatientContext is the slice of the patient profile the responder may
// mention: name for address, clinical notes for safety-relevant answers.
type PatientContext struct {
	Name       string
	Allergies  string
	Conditions string
}

// Responder answers non-booking questions from the clinic knowledge base.
// It is a boundary collaborator: it never returns an error, substituting a
// canned phone-number fallback when the model or the snippet store fails.
type Responder struct {
	llm         LLMClient
	snippets    SnippetStore
	clinicName  string
	clinicPhone string
	modelID     string
	logger      *slog.Logger
}

func NewResponder(llm LLMClient, snippets SnippetStore, clinicName, clinicPhone, modelID string, logger *slog.Logger) *Responder {
	if llm == nil {
		panic("conversation: llm client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		llm:         llm,
		snippets:    snippets,
		clinicName:  clinicName,
		clinicPhone: clinicPhone,
		modelID:     modelID,
		logger:      logger,
	}
}

// FallbackReply is the canned response used when answering fails entirely.
func (r *Responder) FallbackReply() string {
	return fmt.Sprintf("Sorry, I'm having a technical issue. Please call us at %s for immediate assistance.", r.clinicPhone)
}

// Answer generates a grounded reply to the message given the recent turns.
func (r *Responder) Answer(ctx context.Context, patient PatientContext, message string, history []Turn) string {
	var retrieved []string
	if r.snippets != nil {
		all, err := r.snippets.All(ctx)
		if err != nil {
			r.logger.Warn("snippet store unavailable", "error", err.Error())
		} else {
			retrieved = Retrieve(message, all, retrievedSnippetLimit)
		}
	}

	req := LLMRequest{
		Model:       r.modelID,
		System:      []string{r.systemPrompt(patient, retrieved)},
		Messages:    promptMessages(message, history),
		MaxTokens:   512,
		Temperature: 0.4,
	}
	resp, err := r.llm.Complete(ctx, req)
	if err != nil {
		r.logger.Error("knowledge responder failed", "error", err.Error())
		return r.FallbackReply()
	}
	if strings.TrimSpace(resp.Text) == "" {
		return r.FallbackReply()
	}
	return resp.Text
}

func (r *Responder) systemPrompt(patient PatientContext, retrieved []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the virtual assistant of %s, a dental clinic. ", r.clinicName)
	b.WriteString("Answer warmly and concisely. Only state facts present in the clinic knowledge below; ")
	fmt.Fprintf(&b, "if you do not know, suggest calling %s.", r.clinicPhone)

	if patient.Name != "" {
		fmt.Fprintf(&b, "\n\nThe patient's name is %s.", patient.Name)
	}
	if patient.Allergies != "" {
		fmt.Fprintf(&b, "\nKnown allergies: %s.", patient.Allergies)
	}
	if patient.Conditions != "" {
		fmt.Fprintf(&b, "\nMedical conditions: %s.", patient.Conditions)
	}

	if len(retrieved) > 0 {
		b.WriteString("\n\nClinic knowledge:")
		for _, s := range retrieved {
			b.WriteString("\n- ")
			b.WriteString(s)
		}
	}
	return b.String()
}

// promptMessages converts the turn log into provider-neutral messages,
// ending with the current user message.
func promptMessages(message string, history []Turn) []ChatMessage {
	msgs := make([]ChatMessage, 0, len(history)+1)
	for _, t := range history {
		role := ChatRoleUser
		if t.Role == RoleBot {
			role = ChatRoleAssistant
		}
		msgs = append(msgs, ChatMessage{Role: role, Content: t.Text})
	}
	return append(msgs, ChatMessage{Role: ChatRoleUser, Content: message})
}

const titleWordLimit = 4

// Titler derives a short session title from the opening message. Failures
// fall back to the opening words of the message rather than propagate.
type Titler struct {
	llm     LLMClient
	modelID string
	logger  *slog.Logger
}

// DefaultTitle is used for sessions whose title generation failed or that
// have no messages yet.
const DefaultTitle = "New Chat"

func NewTitler(llm LLMClient, modelID string, logger *slog.Logger) *Titler {
	if llm == nil {
		panic("conversation: llm client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Titler{llm: llm, modelID: modelID, logger: logger}
}

// Title returns a title of at most four words for the session.
func (t *Titler) Title(ctx context.Context, firstMessage string) string {
	if strings.TrimSpace(firstMessage) == "" {
		return DefaultTitle
	}
	resp, err := t.llm.Complete(ctx, LLMRequest{
		Model: t.modelID,
		System: []string{
			"Summarize the user's message as a chat title of at most four words. Reply with the title only, no punctuation.",
		},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: firstMessage}},
		MaxTokens:   16,
		Temperature: 0.2,
	})
	if err != nil {
		t.logger.Warn("session title generation failed", "error", err.Error())
		return fallbackTitle(firstMessage)
	}

	title := strings.TrimSpace(strings.Trim(resp.Text, `"'.`))
	if title == "" {
		return fallbackTitle(firstMessage)
	}
	words := strings.Fields(title)
	if len(words) > titleWordLimit {
		words = words[:titleWordLimit]
	}
	return strings.Join(words, " ")
}

// fallbackTitle builds a title from the opening words of the message itself:
// at most four words, capitalized as a sentence.
func fallbackTitle(message string) string {
	words := strings.Fields(message)
	if len(words) == 0 {
		return DefaultTitle
	}
	if len(words) > titleWordLimit {
		words = words[:titleWordLimit]
	}
	title := []rune(strings.ToLower(strings.Join(words, " ")))
	title[0] = unicode.ToUpper(title[0])
	return string(title)
}
