package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/metrics"
	"github.com/akolanti/filebook/pkg/logger_i"
)

var logger = logger_i.NewLogger("quota")

type Reason string

const (
	ReasonNone            Reason = ""
	ReasonSystemBusy      Reason = "SYSTEM_BUSY"
	ReasonCommunityQuota  Reason = "COMMUNITY_QUOTA"
	ReasonUserQuota       Reason = "USER_QUOTA"
	ReasonCollectionLimit Reason = "COLLECTION_LIMIT"
	ReasonDocumentLimit   Reason = "DOCUMENT_LIMIT"
)

// Decision is an expected outcome, not an error. Message is safe to show.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
	Used    int
	Limit   int
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason Reason, used, limit int, message string) Decision {
	metrics.IncrementQuotaRejection(string(reason))
	return Decision{Reason: reason, Message: message, Used: used, Limit: limit}
}

// Error turns a denial into the typed error the handlers map to 403.
func (d Decision) Error() *filebookModel.Error {
	if d.Allowed {
		return nil
	}
	return filebookModel.NewError(filebookModel.KindQuota, d.Message, nil)
}

// Counter is everything the governor reads. All of it is recomputed from the
// store on every check so several instances enforce one shared limit.
type Counter interface {
	filebookModel.UsageCounter
	CountCollections(ctx context.Context, ownerId string) (int, error)
	CountDocumentsByOwner(ctx context.Context, ownerId string) (int, error)
}

type Governor struct {
	counter  Counter
	settings config.QuotaSettings
	location *time.Location
	now      func() time.Time
}

type Option func(*Governor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Governor) {
		g.now = now
	}
}

func NewGovernor(counter Counter, settings config.QuotaSettings, opts ...Option) *Governor {
	g := &Governor{
		counter:  counter,
		settings: settings,
		location: settings.Location(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check gates one question against the requested model. The checks run from
// the cheapest and most global to the per-user aggregation, so a saturated
// system never pays for the per-user count.
func (g *Governor) Check(ctx context.Context, session filebookModel.Session, model string) (Decision, error) {
	log := logger.WithContext(ctx).With("userId", session.UserId, "model", model)
	now := g.now()

	recent, err := g.counter.CountAssistantSince(ctx, now.Add(-g.settings.GlobalWindow))
	if err != nil {
		return Decision{}, fmt.Errorf("count recent responses: %w", err)
	}
	if int(recent) >= g.settings.GlobalWindowCeiling {
		log.Warn("global rate ceiling reached", "recent", recent)
		return deny(ReasonSystemBusy, int(recent), g.settings.GlobalWindowCeiling,
			"Systems are busy. Please wait 30-60 seconds and try again."), nil
	}

	from, to := g.dayBounds(now)
	daily, err := g.counter.CountAssistantForModel(ctx, model, from, to)
	if err != nil {
		return Decision{}, fmt.Errorf("count daily responses: %w", err)
	}
	if int(daily) >= g.settings.GlobalDailyPerModel {
		log.Warn("community daily quota reached", "daily", daily)
		return deny(ReasonCommunityQuota, int(daily), g.settings.GlobalDailyPerModel,
			fmt.Sprintf("Total daily quota for %s has been reached by the community. Try another model or come back tomorrow!", model)), nil
	}

	used, err := g.counter.CountUserQuestions(ctx, session.UserId, model, from, to)
	if err != nil {
		return Decision{}, fmt.Errorf("count user questions: %w", err)
	}
	limit := g.Limits(session.Plan).DailyQuestions
	if int(used) >= limit {
		hint := fmt.Sprintf("Upgrade to Pro for %d daily questions!", g.settings.Pro.DailyQuestions)
		if session.IsPro() {
			hint = "Please try again tomorrow!"
		}
		return deny(ReasonUserQuota, int(used), limit,
			fmt.Sprintf("Your daily limit for %s (%d/%d) is reached. %s", model, used, limit, hint)), nil
	}

	return allow(), nil
}

func (g *Governor) CanCreateCollection(ctx context.Context, session filebookModel.Session) (Decision, error) {
	count, err := g.counter.CountCollections(ctx, session.UserId)
	if err != nil {
		return Decision{}, fmt.Errorf("count collections: %w", err)
	}
	limit := g.Limits(session.Plan).MaxCollections
	if count >= limit {
		hint := "Upgrade to Pro for unlimited filebooks!"
		if session.IsPro() {
			hint = fmt.Sprintf("You have reached the extreme limit of %d filebooks.", limit)
		}
		return deny(ReasonCollectionLimit, count, limit,
			fmt.Sprintf("You have reached the maximum limit of %d filebooks. %s", limit, hint)), nil
	}
	return allow(), nil
}

// CanAddDocument checks the document cap of the collection owner, which is
// not necessarily the uploader.
func (g *Governor) CanAddDocument(ctx context.Context, ownerId string, plan filebookModel.Plan) (Decision, error) {
	count, err := g.counter.CountDocumentsByOwner(ctx, ownerId)
	if err != nil {
		return Decision{}, fmt.Errorf("count documents: %w", err)
	}
	limit := g.Limits(plan).MaxDocuments
	if count >= limit {
		return deny(ReasonDocumentLimit, count, limit,
			fmt.Sprintf("You have reached the maximum limit of %d documents for your plan.", limit)), nil
	}
	return allow(), nil
}

// HistoryRetention is how many chat messages a collection of this plan keeps.
func (g *Governor) HistoryRetention(plan filebookModel.Plan) int {
	return g.Limits(plan).HistoryRetention
}

func (g *Governor) Limits(plan filebookModel.Plan) config.PlanLimits {
	if plan == filebookModel.PlanPro {
		return g.settings.Pro
	}
	return g.settings.Free
}

// dayBounds is the calendar day containing t in the configured timezone.
func (g *Governor) dayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(g.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.location)
	return start, start.AddDate(0, 0, 1)
}
