package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/pkg/logger_i"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

type collectionRecord struct {
	Id                string `gorm:"primaryKey;size:64"`
	Name              string `gorm:"not null"`
	OwnerId           string `gorm:"size:64;not null;index"`
	OwnerPlan         string `gorm:"size:16"`
	IsFeatured        bool
	IsFeaturedRequest bool
	CreatedAt         time.Time `gorm:"not null"`
}

func (collectionRecord) TableName() string { return "collections" }

type documentRecord struct {
	Id           string `gorm:"primaryKey;size:64"`
	Name         string `gorm:"not null"`
	MediaType    string
	Format       string `gorm:"size:16"`
	CollectionId string `gorm:"size:64;not null;index"`
	OwnerId      string `gorm:"size:64;not null;index"`
	ChunkCount   int
	CreatedAt    time.Time `gorm:"not null"`
}

func (documentRecord) TableName() string { return "documents" }

// Seq orders a transcript independently of clock resolution.
type messageRecord struct {
	Seq          uint64 `gorm:"primaryKey;autoIncrement"`
	Id           string `gorm:"size:64;uniqueIndex"`
	CollectionId string `gorm:"size:64;not null;index"`
	AuthorId     string `gorm:"size:64"`
	Role         string `gorm:"size:16;not null"`
	Content      string `gorm:"type:text;not null"`
	Model        string `gorm:"size:64"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (messageRecord) TableName() string { return "chat_messages" }

// usageRecord survives transcript eviction so the quota counts stay exact.
type usageRecord struct {
	MessageId string    `gorm:"primaryKey;size:64"`
	Role      string    `gorm:"size:16;not null;index:idx_usage_role_time,priority:1"`
	AuthorId  string    `gorm:"size:64;index"`
	Model     string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_usage_role_time,priority:2"`
}

func (usageRecord) TableName() string { return "usage_events" }

type GormFilebookStore struct {
	db     *gorm.DB
	logger *logger_i.Logger
}

// OpenGormFilebookStore connects to MySQL and migrates the schema.
func OpenGormFilebookStore(ctx context.Context, dsn string) (*GormFilebookStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("mysql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(config.MaxIdleConnsPerHost)
	sqlDB.SetMaxIdleConns(config.MaxIdleConnsPerHost / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, config.RedisPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return NewGormFilebookStore(db)
}

func NewGormFilebookStore(db *gorm.DB) (*GormFilebookStore, error) {
	if err := db.AutoMigrate(&collectionRecord{}, &documentRecord{}, &messageRecord{}, &usageRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s := &GormFilebookStore{db: db, logger: logger_i.NewLogger("GormFilebookStore")}
	s.logger.Info("MySQL store initialised")
	return s, nil
}

func (s *GormFilebookStore) CreateCollection(ctx context.Context, c filebookModel.Collection) error {
	return s.db.WithContext(ctx).Create(&collectionRecord{
		Id:                c.Id,
		Name:              c.Name,
		OwnerId:           c.OwnerId,
		OwnerPlan:         string(c.OwnerPlan),
		IsFeatured:        c.IsFeatured,
		IsFeaturedRequest: c.IsFeaturedRequest,
		CreatedAt:         c.CreatedAt,
	}).Error
}

func (s *GormFilebookStore) GetCollection(ctx context.Context, id string) (filebookModel.Collection, error) {
	var rec collectionRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return filebookModel.Collection{}, notFound(err)
	}
	return rec.toModel(), nil
}

func (s *GormFilebookStore) UpdateCollection(ctx context.Context, c filebookModel.Collection) error {
	result := s.db.WithContext(ctx).Model(&collectionRecord{}).Where("id = ?", c.Id).
		Select("name", "owner_plan", "is_featured", "is_featured_request").
		Updates(collectionRecord{
			Name:              c.Name,
			OwnerPlan:         string(c.OwnerPlan),
			IsFeatured:        c.IsFeatured,
			IsFeaturedRequest: c.IsFeaturedRequest,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// MySQL reports unchanged rows as unaffected
		var n int64
		if err := s.db.WithContext(ctx).Model(&collectionRecord{}).Where("id = ?", c.Id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return filebookModel.ErrNotFound
		}
	}
	return nil
}

func (s *GormFilebookStore) ListCollections(ctx context.Context, ownerId string) ([]filebookModel.Collection, error) {
	var recs []collectionRecord
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerId).Order("created_at").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]filebookModel.Collection, len(recs))
	for i, rec := range recs {
		out[i] = rec.toModel()
	}
	return out, nil
}

func (s *GormFilebookStore) CountCollections(ctx context.Context, ownerId string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&collectionRecord{}).Where("owner_id = ?", ownerId).Count(&n).Error
	return int(n), err
}

func (s *GormFilebookStore) DeleteCollection(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&collectionRecord{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return filebookModel.ErrNotFound
		}
		if err := tx.Where("collection_id = ?", id).Delete(&documentRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("collection_id = ?", id).Delete(&messageRecord{}).Error
	})
}

func (s *GormFilebookStore) CreateDocument(ctx context.Context, d commonModels.Document) error {
	return s.db.WithContext(ctx).Create(&documentRecord{
		Id:           d.Id,
		Name:         d.Name,
		MediaType:    d.MediaType,
		Format:       string(d.Format),
		CollectionId: d.CollectionId,
		OwnerId:      d.OwnerId,
		ChunkCount:   d.ChunkCount,
		CreatedAt:    d.CreatedAt,
	}).Error
}

func (s *GormFilebookStore) GetDocument(ctx context.Context, id string) (commonModels.Document, error) {
	var rec documentRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return commonModels.Document{}, notFound(err)
	}
	return rec.toModel(), nil
}

func (s *GormFilebookStore) ListDocuments(ctx context.Context, collectionId string) ([]commonModels.Document, error) {
	var recs []documentRecord
	if err := s.db.WithContext(ctx).Where("collection_id = ?", collectionId).Order("created_at").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]commonModels.Document, len(recs))
	for i, rec := range recs {
		out[i] = rec.toModel()
	}
	return out, nil
}

func (s *GormFilebookStore) CountDocumentsByOwner(ctx context.Context, ownerId string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&documentRecord{}).Where("owner_id = ?", ownerId).Count(&n).Error
	return int(n), err
}

func (s *GormFilebookStore) DeleteDocument(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&documentRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return filebookModel.ErrNotFound
	}
	return nil
}

// AppendMessages inserts the turn, its usage events and the retention trim in
// one transaction.
func (s *GormFilebookStore) AppendMessages(ctx context.Context, collectionId string, retain int, msgs ...filebookModel.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range msgs {
			m = prepareMessage(m, collectionId)
			if err := tx.Create(&messageRecord{
				Id:           m.Id,
				CollectionId: m.CollectionId,
				AuthorId:     m.AuthorId,
				Role:         string(m.Role),
				Content:      m.Content,
				Model:        m.Model,
				CreatedAt:    m.CreatedAt,
			}).Error; err != nil {
				return err
			}
			if !countsTowardUsage(m) {
				continue
			}
			if err := tx.Create(&usageRecord{
				MessageId: m.Id,
				Role:      string(m.Role),
				AuthorId:  m.AuthorId,
				Model:     m.Model,
				CreatedAt: m.CreatedAt,
			}).Error; err != nil {
				return err
			}
		}

		if retain > 0 {
			var cutoff messageRecord
			err := tx.Where("collection_id = ?", collectionId).Order("seq desc").Offset(retain).Limit(1).Take(&cutoff).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
			case err != nil:
				return err
			default:
				if err := tx.Where("collection_id = ? AND seq <= ?", collectionId, cutoff.Seq).Delete(&messageRecord{}).Error; err != nil {
					return err
				}
			}
		}

		return tx.Where("created_at < ?", time.Now().Add(-config.UsageIndexRetention)).Delete(&usageRecord{}).Error
	})
	if err != nil {
		s.logger.WithContext(ctx).Error("error saving chat", "collectionId", collectionId, "error", err)
	}
	return err
}

func (s *GormFilebookStore) RecentMessages(ctx context.Context, collectionId string, n int) ([]filebookModel.ChatMessage, error) {
	if n <= 0 {
		return []filebookModel.ChatMessage{}, nil
	}
	var recs []messageRecord
	if err := s.db.WithContext(ctx).Where("collection_id = ?", collectionId).Order("seq desc").Limit(n).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]filebookModel.ChatMessage, len(recs))
	for i, rec := range recs {
		out[len(recs)-1-i] = rec.toModel()
	}
	return out, nil
}

func (s *GormFilebookStore) CountMessages(ctx context.Context, collectionId string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&messageRecord{}).Where("collection_id = ?", collectionId).Count(&n).Error
	return int(n), err
}

func (s *GormFilebookStore) CountAssistantSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&usageRecord{}).
		Where("role = ? AND created_at >= ?", filebookModel.MessageRoleAssistant, since).
		Count(&n).Error
	return n, err
}

func (s *GormFilebookStore) CountAssistantForModel(ctx context.Context, model string, from, to time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&usageRecord{}).
		Where("role = ? AND model = ? AND created_at >= ? AND created_at < ?", filebookModel.MessageRoleAssistant, model, from, to).
		Count(&n).Error
	return n, err
}

func (s *GormFilebookStore) CountUserQuestions(ctx context.Context, userId, model string, from, to time.Time) (int64, error) {
	q := s.db.WithContext(ctx).Model(&usageRecord{}).
		Where("role = ? AND author_id = ? AND created_at >= ? AND created_at < ?", filebookModel.MessageRoleUser, userId, from, to)
	if model != "" {
		q = q.Where("model = ?", model)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return filebookModel.ErrNotFound
	}
	return err
}

func (rec collectionRecord) toModel() filebookModel.Collection {
	return filebookModel.Collection{
		Id:                rec.Id,
		Name:              rec.Name,
		OwnerId:           rec.OwnerId,
		OwnerPlan:         filebookModel.Plan(rec.OwnerPlan),
		IsFeatured:        rec.IsFeatured,
		IsFeaturedRequest: rec.IsFeaturedRequest,
		CreatedAt:         rec.CreatedAt,
	}
}

func (rec documentRecord) toModel() commonModels.Document {
	return commonModels.Document{
		Id:           rec.Id,
		Name:         rec.Name,
		MediaType:    rec.MediaType,
		Format:       commonModels.DocType(rec.Format),
		CollectionId: rec.CollectionId,
		OwnerId:      rec.OwnerId,
		ChunkCount:   rec.ChunkCount,
		CreatedAt:    rec.CreatedAt,
	}
}

func (rec messageRecord) toModel() filebookModel.ChatMessage {
	return filebookModel.ChatMessage{
		Id:           rec.Id,
		CollectionId: rec.CollectionId,
		AuthorId:     rec.AuthorId,
		Role:         filebookModel.MessageRole(rec.Role),
		Content:      rec.Content,
		Model:        rec.Model,
		CreatedAt:    rec.CreatedAt,
	}
}
