package quota_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/data/store"
	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flash = "gemini-2.5-flash"

var (
	// noon today keeps every fixture inside one UTC day and inside the
	// store's usage retention, which prunes against the wall clock
	fixedNow = time.Now().UTC().Truncate(24 * time.Hour).Add(12 * time.Hour)
	free     = filebookModel.Session{UserId: "alice", Role: filebookModel.RoleUser, Plan: filebookModel.PlanFree}
	pro      = filebookModel.Session{UserId: "paula", Role: filebookModel.RoleUser, Plan: filebookModel.PlanPro}
)

func newGovernor(s *store.InMemoryFilebookStore, settings config.QuotaSettings) *quota.Governor {
	return quota.NewGovernor(s, settings, quota.WithClock(func() time.Time { return fixedNow }))
}

// roomySettings lifts the global limits out of the way of per-user tests.
func roomySettings() config.QuotaSettings {
	settings := config.DefaultQuota()
	settings.GlobalWindowCeiling = 1000
	settings.GlobalDailyPerModel = 1000
	return settings
}

func askAt(t *testing.T, s *store.InMemoryFilebookStore, user, model string, at time.Time) {
	t.Helper()
	err := s.AppendMessages(context.Background(), "c-"+user, 1000,
		filebookModel.ChatMessage{Role: filebookModel.MessageRoleUser, AuthorId: user, Model: model, Content: "q", CreatedAt: at},
		filebookModel.ChatMessage{Role: filebookModel.MessageRoleAssistant, AuthorId: user, Model: model, Content: "a", CreatedAt: at},
	)
	require.NoError(t, err)
}

func TestCheck_UserDailyLimit(t *testing.T) {
	s := store.InitInMemoryFilebookStore()
	g := newGovernor(s, roomySettings())
	ctx := context.Background()
	limit := config.FreeDailyQuestions

	for i := range limit {
		d, err := g.Check(ctx, free, flash)
		require.NoError(t, err)
		require.True(t, d.Allowed, "question %d should be allowed", i+1)
		askAt(t, s, free.UserId, flash, fixedNow.Add(-time.Duration(limit-i)*time.Minute))
	}

	d, err := g.Check(ctx, free, flash)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, quota.ReasonUserQuota, d.Reason)
	assert.Equal(t, limit, d.Used)
	assert.Equal(t, limit, d.Limit)
	assert.Contains(t, d.Message, fmt.Sprintf("(%d/%d)", limit, limit))
	assert.Contains(t, d.Message, "Upgrade to Pro")

	qErr := d.Error()
	require.NotNil(t, qErr)
	assert.Equal(t, filebookModel.KindQuota, qErr.Kind)
	assert.Equal(t, 403, qErr.HTTPStatus())

	// the bucket is per model
	d, err = g.Check(ctx, free, config.OpenAIChatModelName)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// and per user
	d, err = g.Check(ctx, pro, flash)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCheck_YesterdayDoesNotCount(t *testing.T) {
	s := store.InitInMemoryFilebookStore()
	g := newGovernor(s, roomySettings())

	for i := range config.FreeDailyQuestions {
		askAt(t, s, free.UserId, flash, fixedNow.Add(-24*time.Hour-time.Duration(i)*time.Minute))
	}

	d, err := g.Check(context.Background(), free, flash)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCheck_ProHint(t *testing.T) {
	s := store.InitInMemoryFilebookStore()
	settings := roomySettings()
	settings.Pro.DailyQuestions = 2
	g := newGovernor(s, settings)

	askAt(t, s, pro.UserId, flash, fixedNow.Add(-2*time.Minute))
	askAt(t, s, pro.UserId, flash, fixedNow.Add(-90*time.Second))

	d, err := g.Check(context.Background(), pro, flash)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Message, "Please try again tomorrow!")
}

func TestCheck_SystemBusyComesFirst(t *testing.T) {
	s := store.InitInMemoryFilebookStore()
	settings := config.DefaultQuota()
	settings.Free.DailyQuestions = 1
	g := newGovernor(s, settings)

	// other users saturate the rolling window, alice has also used her quota
	askAt(t, s, free.UserId, flash, fixedNow.Add(-50*time.Second))
	for i := range settings.GlobalWindowCeiling {
		askAt(t, s, fmt.Sprintf("user-%d", i), flash, fixedNow.Add(-time.Duration(10+i)*time.Second))
	}

	d, err := g.Check(context.Background(), free, flash)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, quota.ReasonSystemBusy, d.Reason)
	assert.Equal(t, "Systems are busy. Please wait 30-60 seconds and try again.", d.Message)
}

func TestCheck_WindowSlides(t *testing.T) {
	s := store.InitInMemoryFilebookStore()
	settings := config.DefaultQuota()
	g := newGovernor(s, settings)

	for i := range settings.GlobalWindowCeiling {
		askAt(t, s, fmt.Sprintf("user-%d", i), flash, fixedNow.Add(-settings.GlobalWindow-time.Duration(i+1)*time.Second))
	}

	d, err := g.Check(context.Background(), free, flash)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCheck_CommunityQuota(t *testing.T) {
	s := store.InitInMemoryFilebookStore()
	settings := config.DefaultQuota()
	settings.GlobalDailyPerModel = 3
	g := newGovernor(s, settings)

	for i := range 3 {
		askAt(t, s, fmt.Sprintf("user-%d", i), flash, fixedNow.Add(-time.Duration(i+1)*time.Hour))
	}

	d, err := g.Check(context.Background(), free, flash)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, quota.ReasonCommunityQuota, d.Reason)
	assert.Contains(t, d.Message, flash)

	d, err = g.Check(context.Background(), free, config.GeminiFlashLiteName)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCheck_GreetingsAreFree(t *testing.T) {
	s := store.InitInMemoryFilebookStore()
	settings := roomySettings()
	settings.Free.DailyQuestions = 1
	g := newGovernor(s, settings)

	for range 5 {
		askAt(t, s, free.UserId, "", fixedNow.Add(-time.Minute))
	}

	d, err := g.Check(context.Background(), free, flash)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCanCreateCollection(t *testing.T) {
	s := store.InitInMemoryFilebookStore()
	g := newGovernor(s, config.DefaultQuota())
	ctx := context.Background()

	for i := range config.FreeMaxCollections {
		d, err := g.CanCreateCollection(ctx, free)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.NoError(t, s.CreateCollection(ctx, filebookModel.Collection{Id: fmt.Sprintf("c%d", i), OwnerId: free.UserId}))
	}

	d, err := g.CanCreateCollection(ctx, free)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, quota.ReasonCollectionLimit, d.Reason)
	assert.Contains(t, d.Message, "Upgrade to Pro")
}

func TestCanAddDocument(t *testing.T) {
	s := store.InitInMemoryFilebookStore()
	settings := config.DefaultQuota()
	settings.Free.MaxDocuments = 1
	g := newGovernor(s, settings)
	ctx := context.Background()

	d, err := g.CanAddDocument(ctx, "alice", filebookModel.PlanFree)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	require.NoError(t, s.CreateDocument(ctx, docFor("alice")))

	d, err = g.CanAddDocument(ctx, "alice", filebookModel.PlanFree)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, quota.ReasonDocumentLimit, d.Reason)

	d, err = g.CanAddDocument(ctx, "alice", filebookModel.PlanPro)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestHistoryRetention(t *testing.T) {
	g := newGovernor(store.InitInMemoryFilebookStore(), config.DefaultQuota())
	assert.Equal(t, config.FreeHistoryRetention, g.HistoryRetention(filebookModel.PlanFree))
	assert.Equal(t, config.ProHistoryRetention, g.HistoryRetention(filebookModel.PlanPro))
	assert.Equal(t, config.FreeHistoryRetention, g.HistoryRetention(""))
}

func TestUsage(t *testing.T) {
	s := store.InitInMemoryFilebookStore()
	g := newGovernor(s, roomySettings())
	ctx := context.Background()

	askAt(t, s, free.UserId, flash, fixedNow.Add(-time.Hour))
	askAt(t, s, free.UserId, config.OpenAIChatModelName, fixedNow.Add(-time.Minute))
	require.NoError(t, s.CreateCollection(ctx, filebookModel.Collection{Id: "c1", OwnerId: free.UserId}))
	require.NoError(t, s.CreateDocument(ctx, docFor(free.UserId)))

	u, err := g.Usage(ctx, free)
	require.NoError(t, err)
	assert.Equal(t, filebookModel.PlanFree, u.Plan)
	assert.Equal(t, 2, u.QuestionsToday)
	assert.Equal(t, config.FreeDailyQuestions, u.QuestionsLimit)
	assert.Equal(t, 1, u.CollectionsCount)
	assert.Equal(t, 1, u.DocumentsCount)
}

func docFor(owner string) commonModels.Document {
	return commonModels.Document{Id: "doc-" + owner, CollectionId: "c1", OwnerId: owner}
}
