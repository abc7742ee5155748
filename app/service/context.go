package service

import "context"

type submissionIDKey struct{}

// WithSubmissionID stores the submission ID in the context.
func WithSubmissionID(ctx context.Context, submissionID string) context.Context {
	return context.WithValue(ctx, submissionIDKey{}, submissionID)
}

// SubmissionIDFromContext extracts the submission ID from the context.
func SubmissionIDFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(submissionIDKey{})
	if value == nil {
		return "", false
	}
	submissionID, ok := value.(string)
	return submissionID, ok
}
