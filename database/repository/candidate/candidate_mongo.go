package candidateRepo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"huddle/models"
)

var ErrCandidateNotFound = errors.New("candidate not found")

// MongoCandidateRepo implements CandidateRepository using MongoDB.
type MongoCandidateRepo struct {
	coll *mongo.Collection
}

// NewMongoCandidateRepo uses the "candidates" collection of db.
func NewMongoCandidateRepo(db *mongo.Database) *MongoCandidateRepo {
	return &MongoCandidateRepo{coll: db.Collection("candidates")}
}

// searchFilter builds the Mongo filter for criteria.
func searchFilter(criteria CandidateSearchCriteria) bson.M {
	filter := bson.M{}
	if criteria.Activity != "" {
		// Candidates without an activity list are open to anything.
		filter["$or"] = bson.A{
			bson.M{"activities": bson.M{"$regex": "^" + regexp.QuoteMeta(criteria.Activity) + "$", "$options": "i"}},
			bson.M{"activities": bson.M{"$exists": false}},
			bson.M{"activities": bson.M{"$size": 0}},
		}
	}
	if criteria.Gender != "" {
		filter["gender"] = bson.M{"$regex": "^" + regexp.QuoteMeta(criteria.Gender) + "$", "$options": "i"}
	}
	if criteria.ExcludeID != "" {
		filter["id"] = bson.M{"$ne": criteria.ExcludeID}
	}
	return filter
}

func (r *MongoCandidateRepo) Search(ctx context.Context, criteria CandidateSearchCriteria) ([]models.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	if criteria.Limit > 0 {
		opts.SetLimit(int64(criteria.Limit))
	}
	cursor, err := r.coll.Find(ctx, searchFilter(criteria), opts)
	if err != nil {
		return nil, fmt.Errorf("candidate search query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var candidates []models.Participant
	for cursor.Next(ctx) {
		var p models.Participant
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode candidate: %w", err)
		}
		candidates = append(candidates, p)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return candidates, nil
}

func (r *MongoCandidateRepo) GetByID(ctx context.Context, id string) (*models.Participant, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var p models.Participant
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCandidateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate with id %s: %w", id, err)
	}
	return &p, nil
}

func (r *MongoCandidateRepo) Upsert(ctx context.Context, p models.Participant) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := r.coll.ReplaceOne(ctx, bson.M{"id": p.ID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert candidate %s: %w", p.ID, err)
	}
	return nil
}
