package models

const (
	ContextSeparator = "\n\n"
	ThinkTag         = `(?s)<think>.*?</think>`

	TablePrefix       = "DATA FROM TAB %s:\n"
	RawSectionHeader  = "### DATA %s ###\n"
	DocumentLabel     = "Document %s"
	SourceBlockFormat = "Source %s:\n%s"

	UpdateMarker = "Update"
)

const (
	DefaultSystemPrompt = `You are the virtual assistant of the institution. Answer politely and concisely in the language of the question.`

	GroundingPolicyTemplate = `Answer ONLY with information found in the context below. Do not use outside knowledge. If the context does not cover the question, reply exactly with: "%s"`

	DefaultRefusalMessage     = "Sorry, that information is not available in our official data."
	DefaultDegradedMessage    = "We are experiencing technical problems right now. Please try again in a few minutes."
	DefaultFailureMessage     = "Something went wrong while generating the answer. Please try again later."
	DefaultValidationMessage  = "Question must not be empty."
	DefaultNotInitialized     = "The knowledge base is empty. Run a data sync first."
	DefaultNoDataMessage      = "No source data could be loaded. Please contact the administrator."
	DefaultContextHeader      = "OFFICIAL CONTEXT"
	DefaultQuestionHeader     = "USER QUESTION"
	DefaultInstructionHeader  = "INSTRUCTIONS"
	DefaultAnswerHeader       = "YOUR ANSWER"
	DefaultEmailDomain        = "@gmail.com"
	DefaultIndexColumn        = "NamaTab"
	DefaultDocumentColumn     = "Link_PDF"
	DefaultSectionURLTemplate = "%s/gviz/tq?tqx=out:csv&sheet=%s"
)

// DefaultKeywords are the topics answered straight from the instruction text.
var DefaultKeywords = []string{"alumni", "mahasiswa", "prodi", "dosen", "tendik", "penelitian", "kerjasama", "pkm"}
