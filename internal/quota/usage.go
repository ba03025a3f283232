package quota

import (
	"context"
	"fmt"

	"github.com/akolanti/filebook/internal/domain/filebookModel"
)

type Usage struct {
	Plan             filebookModel.Plan
	QuestionsToday   int
	QuestionsLimit   int
	CollectionsCount int
	CollectionsLimit int
	DocumentsCount   int
	DocumentsLimit   int
}

// Usage summarises today's consumption for the session's user across all models.
func (g *Governor) Usage(ctx context.Context, session filebookModel.Session) (Usage, error) {
	from, to := g.dayBounds(g.now())
	questions, err := g.counter.CountUserQuestions(ctx, session.UserId, "", from, to)
	if err != nil {
		return Usage{}, fmt.Errorf("count user questions: %w", err)
	}
	collections, err := g.counter.CountCollections(ctx, session.UserId)
	if err != nil {
		return Usage{}, fmt.Errorf("count collections: %w", err)
	}
	documents, err := g.counter.CountDocumentsByOwner(ctx, session.UserId)
	if err != nil {
		return Usage{}, fmt.Errorf("count documents: %w", err)
	}

	limits := g.Limits(session.Plan)
	plan := session.Plan
	if plan == "" {
		plan = filebookModel.PlanFree
	}
	return Usage{
		Plan:             plan,
		QuestionsToday:   int(questions),
		QuestionsLimit:   limits.DailyQuestions,
		CollectionsCount: collections,
		CollectionsLimit: limits.MaxCollections,
		DocumentsCount:   documents,
		DocumentsLimit:   limits.MaxDocuments,
	}, nil
}
