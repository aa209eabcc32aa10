package backend

import (
	"context"
	"strings"
	"unicode"

	"fjacquet/spendlog/internal/pipelineerror"
)

// ExtractFromAudio transcribes a voice note with b and extracts transactions
// from the transcript. Both steps run on the same backend even if the registry
// switches in between. An empty or unusable transcript stops before extraction.
func ExtractFromAudio(ctx context.Context, b Backend, audioPath, hint string, categories []string) (string, error) {
	transcript, err := b.TranscribeAudio(ctx, audioPath)
	if err != nil {
		if pipelineerror.IsProviderUnavailable(err) || pipelineerror.IsTranscriptionFailed(err) {
			return "", err
		}
		return "", &pipelineerror.TranscriptionFailedError{Backend: b.Name(), Reason: "transcription error", Err: err}
	}

	transcript = strings.TrimSpace(transcript)
	if !usableTranscript(transcript) {
		return "", &pipelineerror.TranscriptionFailedError{Backend: b.Name(), Reason: "empty transcript"}
	}

	return b.ExtractFromText(ctx, transcript, hint, categories)
}

// usableTranscript requires at least one letter or digit.
func usableTranscript(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
