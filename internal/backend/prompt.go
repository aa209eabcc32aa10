package backend

import (
	"fmt"
	"strings"
	"time"
)

// ExtractionRequest is the vendor-neutral content of an extraction prompt.
type ExtractionRequest struct {
	Hint          string
	Categories    []string
	FallbackLabel string
	Today         time.Time
}

// SystemInstruction is the instruction shared by every vendor. It pins the
// output shape the normalizer expects.
const SystemInstruction = "You extract personal finance transactions from user messages, " +
	"receipts and screenshots. You reply with raw JSON only."

// BuildExtractionPrompt renders the user-turn prompt for an extraction call.
// The tenant's category names are listed verbatim and the model is told to
// use the fallback label for anything else.
func BuildExtractionPrompt(req ExtractionRequest) string {
	fallback := req.FallbackLabel
	if fallback == "" {
		fallback = "Other"
	}
	today := req.Today
	if today.IsZero() {
		today = time.Now()
	}

	var b strings.Builder
	b.WriteString("Extract every financial transaction from the input.\n\n")
	b.WriteString("Return a JSON array. Each element has exactly these fields:\n")
	b.WriteString(`- "type": "debit" for money spent, "credit" for money received` + "\n")
	b.WriteString(`- "amount": positive number without currency symbols` + "\n")
	b.WriteString(`- "currency": ISO 4217 code, omit if unknown` + "\n")
	fmt.Fprintf(&b, `- "date": YYYY-MM-DD; today is %s; omit if not stated`+"\n", today.Format("2006-01-02"))
	b.WriteString(`- "category": one name from the category list below` + "\n")
	b.WriteString(`- "vendor": merchant or counterparty, empty if unknown` + "\n")
	b.WriteString(`- "description": short description` + "\n\n")

	b.WriteString("Categories (use the exact spelling):\n")
	for _, name := range req.Categories {
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nIf no category fits, use %q. Never invent another category.\n", fallback)
	b.WriteString("If the input contains no transaction, return [].\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")

	if hint := strings.TrimSpace(req.Hint); hint != "" {
		b.WriteString("\nAdditional context from the user:\n")
		b.WriteString(hint)
		b.WriteString("\n")
	}
	return b.String()
}

// TextPrompt appends the user's text to the extraction prompt.
func TextPrompt(req ExtractionRequest, text string) string {
	return BuildExtractionPrompt(req) + "\nInput:\n" + text + "\n"
}

// TranscriptionPrompt is the instruction used to turn a voice note into text.
const TranscriptionPrompt = "Transcribe this voice note verbatim in its original language. " +
	"Return only the transcript. If there is no intelligible speech, return an empty response."
