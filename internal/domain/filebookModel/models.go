package filebookModel

import (
	"context"
	"time"

	"github.com/akolanti/filebook/internal/domain/commonModels"
)

type Plan string
type UserRole string
type MessageRole string

const (
	PlanFree Plan = "FREE"
	PlanPro  Plan = "PRO"

	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"

	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Session is what the identity provider hands us for an authenticated request.
type Session struct {
	UserId string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Plan   Plan     `json:"plan"`
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

func (s Session) IsPro() bool {
	return s.Plan == PlanPro
}

// Collection is a "filebook": a user-owned set of documents plus one transcript.
type Collection struct {
	Id                string    `json:"id"`
	Name              string    `json:"name"`
	OwnerId           string    `json:"owner_id"`
	OwnerPlan         Plan      `json:"owner_plan"`
	IsFeatured        bool      `json:"is_featured"`
	IsFeaturedRequest bool      `json:"is_featured_request"`
	CreatedAt         time.Time `json:"created_at"`
}

// CanRead reports whether the session may query this collection.
func (c Collection) CanRead(s Session) bool {
	return c.OwnerId == s.UserId || s.IsAdmin() || c.IsFeatured
}

// CanWrite reports whether the session may add or remove documents.
func (c Collection) CanWrite(s Session) bool {
	return c.OwnerId == s.UserId || s.IsAdmin()
}

type ChatMessage struct {
	Id           string      `json:"id"`
	CollectionId string      `json:"collection_id"`
	AuthorId     string      `json:"author_id"`
	Role         MessageRole `json:"role"`
	Content      string      `json:"content"`
	Model        string      `json:"model,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

type CollectionStore interface {
	CreateCollection(ctx context.Context, c Collection) error
	GetCollection(ctx context.Context, id string) (Collection, error)
	UpdateCollection(ctx context.Context, c Collection) error
	ListCollections(ctx context.Context, ownerId string) ([]Collection, error)
	CountCollections(ctx context.Context, ownerId string) (int, error)
	DeleteCollection(ctx context.Context, id string) error
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, d commonModels.Document) error
	GetDocument(ctx context.Context, id string) (commonModels.Document, error)
	ListDocuments(ctx context.Context, collectionId string) ([]commonModels.Document, error)
	CountDocumentsByOwner(ctx context.Context, ownerId string) (int, error)
	DeleteDocument(ctx context.Context, id string) error
}

type MessageStore interface {
	// AppendMessages stores msgs in order and evicts the oldest messages of the
	// collection so that at most retain remain.
	AppendMessages(ctx context.Context, collectionId string, retain int, msgs ...ChatMessage) error
	// RecentMessages returns up to n of the newest messages, oldest first.
	RecentMessages(ctx context.Context, collectionId string, n int) ([]ChatMessage, error)
	CountMessages(ctx context.Context, collectionId string) (int, error)
}

// UsageCounter answers the quota governor's questions from the message log.
type UsageCounter interface {
	// CountAssistantSince counts model-produced assistant replies across the system.
	CountAssistantSince(ctx context.Context, since time.Time) (int64, error)
	CountAssistantForModel(ctx context.Context, model string, from, to time.Time) (int64, error)
	// CountUserQuestions counts questions authored by userId; an empty model counts every model.
	CountUserQuestions(ctx context.Context, userId, model string, from, to time.Time) (int64, error)
}

type Store interface {
	CollectionStore
	DocumentStore
	MessageStore
	UsageCounter
}
