package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"treemark/internal/domain"
	"treemark/internal/domain/models/bookmarks"
	"treemark/internal/domain/repositories"
)

// bookmarkDocument is the stored shape. Children and parentId hold hex
// ids as strings.
type bookmarkDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	URL       string             `bson:"url,omitempty"`
	IsFolder  bool               `bson:"isFolder"`
	Children  []string           `bson:"children,omitempty"`
	ParentID  *string            `bson:"parentId"`
	UserID    string             `bson:"userId"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *bookmarkDocument) toModel() bookmarks.Bookmark {
	return bookmarks.Bookmark{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		URL:       d.URL,
		IsFolder:  d.IsFolder,
		Children:  d.Children,
		ParentID:  d.ParentID,
		UserID:    d.UserID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoBookmarkRepository implements the BookmarkRepository interface
type MongoBookmarkRepository struct {
	coll *mongo.Collection
}

// NewBookmarkRepository creates a new bookmark repository
func NewBookmarkRepository(config *RepositoryConfig) repositories.BookmarkRepository {
	return &MongoBookmarkRepository{coll: config.collection()}
}

// Create inserts the bookmark and writes the generated id back to b.
func (r *MongoBookmarkRepository) Create(ctx context.Context, b *bookmarks.Bookmark) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}

	doc := bookmarkDocument{
		Title:     b.Title,
		URL:       b.URL,
		IsFolder:  b.IsFolder,
		Children:  b.Children,
		ParentID:  b.ParentID,
		UserID:    b.UserID,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.ID != "" {
		oid, err := primitive.ObjectIDFromHex(b.ID)
		if err != nil {
			return domain.Invalid("bookmark id %q is not a valid object id", b.ID)
		}
		doc.ID = oid
	} else {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &domain.ConflictError{Message: fmt.Sprintf("bookmark %s already exists", doc.ID.Hex()), ResourceID: doc.ID.Hex()}
		}
		return fmt.Errorf("create bookmark: %w", err)
	}

	b.ID = doc.ID.Hex()
	return nil
}

// GetByID retrieves a bookmark by ID
func (r *MongoBookmarkRepository) GetByID(ctx context.Context, id, userID string) (*bookmarks.Bookmark, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var doc bookmarkDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid, "userId": userID}).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("get bookmark: %w", err)
	}

	b := doc.toModel()
	return &b, nil
}

// GetMany batch-fetches bookmarks with a single $in query.
func (r *MongoBookmarkRepository) GetMany(ctx context.Context, ids []string, userID string) ([]bookmarks.Bookmark, error) {
	oids := parseIDs(ids)
	if len(oids) == 0 {
		return []bookmarks.Bookmark{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}, "userId": userID})
}

// ListAll returns the user's whole collection in insertion order.
func (r *MongoBookmarkRepository) ListAll(ctx context.Context, userID string) ([]bookmarks.Bookmark, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

// ListByParent returns the records naming parentID as their parent.
// A nil parentID matches both null and missing fields.
func (r *MongoBookmarkRepository) ListByParent(ctx context.Context, parentID *string, userID string) ([]bookmarks.Bookmark, error) {
	filter := bson.M{"userId": userID, "parentId": nil}
	if parentID != nil {
		filter["parentId"] = *parentID
	}
	return r.find(ctx, filter)
}

func (r *MongoBookmarkRepository) find(ctx context.Context, filter bson.M) ([]bookmarks.Bookmark, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find bookmarks: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bookmarkDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode bookmarks: %w", err)
	}

	out := make([]bookmarks.Bookmark, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toModel())
	}
	return out, nil
}

// Update applies patch with a single $set.
func (r *MongoBookmarkRepository) Update(ctx context.Context, id, userID string, patch *bookmarks.Patch) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	set := bson.M{"updatedAt": updatedAt}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.URL != nil {
		set["url"] = *patch.URL
	}
	if patch.Children != nil {
		set["children"] = patch.Children
	}
	if patch.ParentSet {
		set["parentId"] = patch.ParentID
	}

	return r.updateOne(ctx, id, bson.M{"_id": oid, "userId": userID}, bson.M{"$set": set})
}

// AppendChild pushes childID onto the folder's children.
func (r *MongoBookmarkRepository) AppendChild(ctx context.Context, folderID, childID, userID string) error {
	oid, err := parseID(folderID)
	if err != nil {
		return err
	}
	return r.updateOne(ctx, folderID, bson.M{"_id": oid, "userId": userID}, bson.M{
		"$push": bson.M{"children": childID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

// RemoveChild pulls childID from the folder's children.
func (r *MongoBookmarkRepository) RemoveChild(ctx context.Context, folderID, childID, userID string) error {
	oid, err := parseID(folderID)
	if err != nil {
		return err
	}
	return r.updateOne(ctx, folderID, bson.M{"_id": oid, "userId": userID}, bson.M{
		"$pull": bson.M{"children": childID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *MongoBookmarkRepository) updateOne(ctx context.Context, id string, filter, update bson.M) error {
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update bookmark: %w", err)
	}
	if result.MatchedCount == 0 {
		return notFound(id)
	}
	return nil
}

// Delete removes a single bookmark.
func (r *MongoBookmarkRepository) Delete(ctx context.Context, id, userID string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "userId": userID})
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if result.DeletedCount == 0 {
		return notFound(id)
	}
	return nil
}

// DeleteMany removes every listed bookmark with one $in delete.
func (r *MongoBookmarkRepository) DeleteMany(ctx context.Context, ids []string, userID string) (int64, error) {
	oids := parseIDs(ids)
	if len(oids) == 0 {
		return 0, nil
	}

	result, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}, "userId": userID})
	if err != nil {
		return 0, fmt.Errorf("delete bookmarks: %w", err)
	}
	return result.DeletedCount, nil
}
