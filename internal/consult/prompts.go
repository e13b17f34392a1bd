package consult

import (
	"fmt"
	"strings"
)

const summarySystemPrompt = `You are a doctor having a consultation with your patient.
Review this medical document and explain the findings in clear, patient-friendly language.

Guidelines:
1. Summarize the key findings in simple terms
2. Explain what these findings mean for the patient
3. Relate findings to any reported symptoms if provided
4. Be clear but gentle in delivering information
5. Avoid medical jargon unless necessary

Speak directly to the patient as if they're in your office.`

const followUpSystemPrompt = `You are a doctor in a follow-up conversation with a patient. The patient has already received an initial summary
of their medical document, and now they have additional questions for you.

Your goal is to:
1. Address their question clearly and compassionately, based on previous information and any symptoms they've reported.
2. Relate your answer to the previous findings as much as possible, providing clarity without unnecessary jargon.
3. Reassure the patient and make them feel comfortable with the information.

Please respond in a way that simulates a patient-friendly and empathetic consultation.`

const treatmentSystemPrompt = `You are a doctor concluding a consultation by presenting treatment recommendations to your patient.
Based on the findings, symptoms, and previous discussion, please provide:

1. An overview of the recommended treatment approach.
2. An explanation of what each treatment is expected to accomplish.
3. Clear, supportive information on what the patient should expect next.
4. Any follow-up actions the patient should take.

Use a tone that is professional, empathetic, and supportive to ensure the patient feels reassured and well-informed.`

// Degraded replies shown to the patient when the model cannot be reached.
const (
	SummaryFallback  = "I apologize, but I'm having difficulty interpreting this document at the moment. Please let me review it again."
	FollowUpFallback = "I apologize, but I'm having trouble processing your question. Please try asking in a different way."
)

func summaryUserMessage(text, symptoms string) string {
	context := "Document Content: " + text
	if strings.TrimSpace(symptoms) != "" {
		context += "\nReported Symptoms: " + symptoms
	}
	return "Please review this for your patient: " + context
}

func followUpUserMessage(question, symptoms, context string) string {
	var b strings.Builder
	if context != "" {
		fmt.Fprintf(&b, "Previous Interactions:\n%s\n\n", context)
	}
	if strings.TrimSpace(symptoms) != "" {
		fmt.Fprintf(&b, "Reported Symptoms: %s\n\n", symptoms)
	}
	b.WriteString("Question: " + question)
	return b.String()
}

func treatmentUserMessage(summary, symptoms string, exchanges []Exchange) string {
	context := "Patient Assessment: " + summary
	if symptoms != "" {
		context += "\nReported Symptoms: " + symptoms
	}
	if len(exchanges) > 0 {
		context += "\nDiscussion Points:\n" + FormatExchanges(exchanges)
	}
	return "Based on this consultation, provide treatment recommendations: " + context
}

// FormatExchanges renders prior questions and answers as the follow-up "Previous
// Interactions" block.
func FormatExchanges(exchanges []Exchange) string {
	lines := make([]string, len(exchanges))
	for i, ex := range exchanges {
		lines[i] = fmt.Sprintf("Q: %s\nA: %s", ex.Question, ex.Answer)
	}
	return strings.Join(lines, "\n")
}
