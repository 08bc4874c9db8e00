package contracts

import "context"

// IGenerator is the text generation collaborator. Implementations return an
// error of kind apperrors.KindGeneration on any backend failure.
type IGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
