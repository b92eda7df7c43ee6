package docqa

import "errors"

var (
	ErrDecode             = errors.New("document could not be decoded")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrNotReady           = errors.New("no document indexed")
	ErrAlreadyIndexed     = errors.New("document already indexed")
	ErrEmptyQuestion      = errors.New("question is empty")
	ErrInvalidSuggestion  = errors.New("suggestion not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrEmbeddingMismatch  = errors.New("embedding model mismatch")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrUploadTooLarge     = errors.New("upload too large")
)

// Fixed texts shown to the user.
const (
	NoAnswerText    = "No verified answer found in the document."
	UnsupportedText = "Answer not fully supported by the document."
	UnavailableText = "The assistant is temporarily unavailable. Please try again."

	StatusAwaiting = "Awaiting PDF upload"
	StatusReady    = "PDF indexed and ready to chat"
)

// UserMessage maps an error returned by this package to a short message
// suitable for a chat surface.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBackendUnavailable):
		return UnavailableText
	case errors.Is(err, ErrNotReady):
		return "Upload a PDF before asking questions."
	case errors.Is(err, ErrAlreadyIndexed):
		return "A document is already indexed. Reset the session to upload another one."
	case errors.Is(err, ErrEmptyQuestion):
		return "Type a question or pick a suggested one."
	case errors.Is(err, ErrInvalidSuggestion):
		return "That suggestion is no longer available."
	case errors.Is(err, ErrSessionNotFound):
		return "Session not found."
	case errors.Is(err, ErrUploadTooLarge):
		return "The document is too large."
	case errors.Is(err, ErrDecode):
		return "The document could not be read. Upload a PDF with selectable text."
	default:
		return "Something went wrong."
	}
}
