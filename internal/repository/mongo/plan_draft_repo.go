package mongo

import (
	"context"
	"errors"
	"log"
	"time"

	"tridash/gateway/internal/domain"
	"tridash/gateway/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const planDraftCollectionName = "plan_drafts"

// mongoPlanDraftRepository implements repository.PlanDraftRepository using MongoDB.
type mongoPlanDraftRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanDraftRepository creates a new instance of mongoPlanDraftRepository.
// It expects a connected *mongo.Database instance.
func NewMongoPlanDraftRepository(db *mongo.Database) repository.PlanDraftRepository {
	return &mongoPlanDraftRepository{
		collection: db.Collection(planDraftCollectionName),
	}
}

// Create inserts a new draft. The caller assigns the ID and the expiry; the
// repository stamps the timestamps.
func (r *mongoPlanDraftRepository) Create(ctx context.Context, draft *domain.PlanDraft) error {
	if draft.ID == "" || draft.AthleteID == "" {
		return errors.New("draft ID and athlete ID are required")
	}
	now := time.Now().UTC()
	draft.CreatedAt = now
	draft.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, draft)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New("draft with this ID already exists")
		}
		return err
	}
	return nil
}

// GetByID retrieves one draft. Drafts of other athletes are indistinguishable
// from missing ones.
func (r *mongoPlanDraftRepository) GetByID(ctx context.Context, athleteID, id string) (*domain.PlanDraft, error) {
	var draft domain.PlanDraft
	filter := bson.M{"_id": id, "athleteId": athleteID}

	err := r.collection.FindOne(ctx, filter).Decode(&draft)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &draft, nil
}

// ListByAthlete returns the athlete's drafts, newest first.
func (r *mongoPlanDraftRepository) ListByAthlete(ctx context.Context, athleteID string) ([]domain.PlanDraft, error) {
	filter := bson.M{"athleteId": athleteID}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	drafts := []domain.PlanDraft{}
	if err = cursor.All(ctx, &drafts); err != nil {
		return nil, err
	}
	return drafts, nil
}

// Update replaces the stored draft with the given one.
func (r *mongoPlanDraftRepository) Update(ctx context.Context, draft *domain.PlanDraft) error {
	if draft.ID == "" {
		return errors.New("draft ID is required for update")
	}
	draft.UpdatedAt = time.Now().UTC()
	filter := bson.M{"_id": draft.ID, "athleteId": draft.AthleteID}

	result, err := r.collection.ReplaceOne(ctx, filter, draft)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Transition performs the compare-and-swap between gate statuses: the update
// matches only when the draft still holds the expected status, so exactly one
// caller can win a given transition.
func (r *mongoPlanDraftRepository) Transition(ctx context.Context, athleteID, id string, from, to domain.DraftStatus) error {
	filter := bson.M{"_id": id, "athleteId": athleteID, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Either the draft is gone or someone else moved it first.
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id, "athleteId": athleteID})
		if countErr != nil {
			return countErr
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrStateConflict
	}
	return nil
}

// SaveCheckResult writes a conflict-check outcome. The filter excludes
// executing drafts: a preview result that resolves after a confirm won its
// race must not clobber the execution state.
func (r *mongoPlanDraftRepository) SaveCheckResult(ctx context.Context, athleteID, id string, status domain.DraftStatus, conflicts []domain.ExecutionConflict, checkedAt *time.Time) error {
	filter := bson.M{
		"_id":       id,
		"athleteId": athleteID,
		"status":    bson.M{"$ne": domain.DraftExecuting},
	}
	update := bson.M{"$set": bson.M{
		"status":    status,
		"conflicts": conflicts,
		"checkedAt": checkedAt,
		"updatedAt": time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id, "athleteId": athleteID})
		if countErr != nil {
			return countErr
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrStateConflict
	}
	return nil
}

// Delete removes a draft. Executing drafts are refused so an abort cannot
// race a commit that is already on the wire.
func (r *mongoPlanDraftRepository) Delete(ctx context.Context, athleteID, id string) error {
	filter := bson.M{
		"_id":       id,
		"athleteId": athleteID,
		"status":    bson.M{"$ne": domain.DraftExecuting},
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": id, "athleteId": athleteID})
		if countErr != nil {
			return countErr
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrStateConflict
	}
	return nil
}

// EnsurePlanDraftIndexes creates the indexes for the drafts collection. Call
// during startup. The TTL index is what makes abandoned drafts disappear on
// their own instead of accumulating.
func EnsurePlanDraftIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Main query pattern: an athlete listing their drafts.
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Reap expired drafts server-side.
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
