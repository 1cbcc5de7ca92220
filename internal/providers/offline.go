package providers

import "context"

const offlineModel = "keyword-table-v1"

// offlineClient is the deterministic terminal backend. It consults the
// embedded vocabulary table, consumes no tokens, and never fails.
type offlineClient struct {
	vocab *Vocabulary
}

// NewOffline creates the offline keyword backend.
func NewOffline(vocab *Vocabulary) Client {
	return &offlineClient{vocab: vocab}
}

func (c *offlineClient) Name() Name {
	return NameOffline
}

func (c *offlineClient) Model() string {
	return offlineModel
}

func (c *offlineClient) Classify(_ context.Context, req ClassificationRequest) (*ClassificationResult, error) {
	return c.vocab.ClassifyText(req.Text), nil
}

func (c *offlineClient) CategorizeBatch(_ context.Context, sections []string, hint ContextHint) ([]LabelSet, TokenUsage, error) {
	return c.vocab.LabelSections(sections, hint.Categories), TokenUsage{}, nil
}
