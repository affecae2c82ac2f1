package data

import (
	"context"

	"github.com/devricklin/chatguard/internal/biz/repo"
	"github.com/devricklin/chatguard/internal/infra/classifier"
)

type classifierRepo struct {
	client *classifier.Client
}

// NewClassifierRepo wraps the external classifier. A nil client yields nil,
// which disables classification.
func NewClassifierRepo(client *classifier.Client) repo.ClassifierRepo {
	if client == nil {
		return nil
	}
	return &classifierRepo{client: client}
}

func (r *classifierRepo) IsSpam(ctx context.Context, text string) (bool, error) {
	return r.client.Classify(ctx, text)
}
