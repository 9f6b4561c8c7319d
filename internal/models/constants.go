package models

const (
	ContextSeparator = "\n\n"

	// NoContextResponse is returned when retrieval finds nothing relevant.
	NoContextResponse = "I couldn't find specific information about that in your course materials. Could you rephrase the question or add more sources to this notebook?"

	// ErrorResponse is returned when the model invocation itself fails.
	ErrorResponse = "I'm sorry, I ran into a problem while answering that. Please try again in a moment."

	// IncompleteResponse substitutes a missing response field in model output.
	IncompleteResponse = "The response was incomplete. Please try asking the question again."
)

// GenericQuestions pad the questions list whenever the model supplies
// fewer than three usable follow-ups.
var GenericQuestions = []string{
	"Could you tell me more about what you'd like to learn?",
	"Which topic from your course materials should we focus on?",
	"Would you like a summary of the available sources?",
}

var AnswerPromptTemplate = `You are a study assistant. Answer the question using only the context below. Stay within the scope of course material related things; if the context does not contain the answer, say so.

Context:
%s

Question: %s

Reply with a single JSON object and nothing else, in exactly this shape:
{"response": "<your answer>", "questions": ["<follow-up 1>", "<follow-up 2>", "<follow-up 3>"]}

The questions array must contain exactly three follow-up questions a student might ask next.`

// DocumentPromptTemplates are keyed by document type. Each receives the
// concatenated retrieval context as its sole formatting argument.
var DocumentPromptTemplates = map[string]string{
	"exam": `Create a practice exam based on the following course material. Include a mix of multiple-choice and short-answer questions, numbered sequentially, and finish with a clearly marked Answer Key section.

Course material:
%s`,
	"study_guide": `Create a structured study guide based on the following course material. Organize it by topic with headings, key definitions, and bullet-point summaries of the most important concepts.

Course material:
%s`,
	"briefing": `Write a briefing document summarizing the following course material. Open with a short executive summary, then cover the main themes in order of importance.

Course material:
%s`,
	"faq": `Write a FAQ document for the following course material. Produce at least eight question-and-answer pairs covering the concepts students most commonly ask about.

Course material:
%s`,
	"timeline": `Create a timeline document from the following course material. List events or developments in chronological order with a short explanation of each entry's significance.

Course material:
%s`,
}

// GenericDocumentTemplate handles unrecognized document types.
var GenericDocumentTemplate = `Create educational content based on the following course material. Structure it with headings so it is easy to study from.

Course material:
%s`
