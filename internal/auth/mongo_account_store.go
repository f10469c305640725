package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoAccountStore struct {
	coll *mongo.Collection
}

func NewMongoAccountStore(ctx context.Context, cli *mongo.Client, db, coll string) (*MongoAccountStore, error) {
	c := cli.Database(db).Collection(coll)
	_, _ = c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return &MongoAccountStore{coll: c}, nil
}

type accountDoc struct {
	ID        string    `bson:"_id"`
	Email     string    `bson:"email"`
	PassHash  string    `bson:"pass_hash"`
	Tier      string    `bson:"tier"`
	CreatedAt time.Time `bson:"created_at"`
}

func (s *MongoAccountStore) Add(ctx context.Context, a *Account) error {
	email := strings.ToLower(strings.TrimSpace(a.Email))
	a.Email = email
	_, err := s.coll.InsertOne(ctx, accountDoc{
		ID:        a.ID,
		Email:     email,
		PassHash:  a.PassHash,
		Tier:      a.Tier,
		CreatedAt: a.CreatedAt,
	})
	var wex mongo.WriteException
	if errors.As(err, &wex) {
		for _, we := range wex.WriteErrors {
			if we.Code == 11000 {
				return errors.New("email already exists")
			}
		}
	}
	return err
}

func (s *MongoAccountStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *MongoAccountStore) FindByID(ctx context.Context, id string) (*Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoAccountStore) findOne(ctx context.Context, filter bson.M) (*Account, error) {
	var doc accountDoc
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Account{ID: doc.ID, Email: doc.Email, PassHash: doc.PassHash, Tier: doc.Tier, CreatedAt: doc.CreatedAt}, nil
}
