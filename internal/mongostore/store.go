// Package mongostore implements store.Store on MongoDB, one collection per
// record type.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"reactionduel/internal/store"
)

const DefaultDatabase = "reactionduel"

type Store struct {
	client     *mongo.Client
	players    *mongo.Collection
	games      *mongo.Collection
	results    *mongo.Collection
	highscores *mongo.Collection
	logger     *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Connect dials uri and pings the primary before returning.
func Connect(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	if database == "" {
		database = DefaultDatabase
	}
	db := client.Database(database)
	logger = logger.With("component", "mongo")
	logger.Info("connected to MongoDB", "database", database)
	return &Store{
		client:     client,
		players:    db.Collection("players"),
		games:      db.Collection("games"),
		results:    db.Collection("results"),
		highscores: db.Collection("highscores"),
		logger:     logger,
	}, nil
}

// EnsureIndexes creates the indexes backing the ordered list reads.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.results.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("creating results index: %w", err)
	}
	if _, err := s.highscores.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "highscore", Value: 1}},
	}); err != nil {
		return fmt.Errorf("creating highscores index: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) CreatePlayer(ctx context.Context, id, username string) (*store.Player, error) {
	p := store.Player{ID: id, Username: username, CreatedAt: time.Now().UTC()}
	if _, err := s.players.InsertOne(ctx, p); err != nil {
		return nil, fmt.Errorf("creating player: %w", err)
	}
	return &p, nil
}

func (s *Store) FindPlayer(ctx context.Context, id string) (*store.Player, error) {
	var p store.Player
	err := s.players.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("getting player %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return &p, nil
}

func (s *Store) DeletePlayer(ctx context.Context, id string) error {
	res, err := s.players.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting player: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("deleting player %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateGame(ctx context.Context, playerIDs []string) (*store.Game, error) {
	n, err := s.players.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": playerIDs}})
	if err != nil {
		return nil, fmt.Errorf("counting players: %w", err)
	}
	if int(n) != len(playerIDs) {
		return nil, fmt.Errorf("creating game: %w", store.ErrNotFound)
	}

	g := store.Game{
		ID:        primitive.NewObjectID().Hex(),
		PlayerIDs: append([]string(nil), playerIDs...),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.games.InsertOne(ctx, g); err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}
	if _, err := s.players.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": playerIDs}},
		bson.M{"$set": bson.M{"gameId": g.ID}},
	); err != nil {
		return nil, fmt.Errorf("connecting players: %w", err)
	}
	return &g, nil
}

func (s *Store) FindGame(ctx context.Context, id string) (*store.Game, error) {
	var g store.Game
	err := s.games.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("getting game %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting game: %w", err)
	}
	if g.PlayerIDs == nil {
		g.PlayerIDs = []string{}
	}
	return &g, nil
}

func (s *Store) DisconnectPlayer(ctx context.Context, gameID, playerID string) error {
	res, err := s.games.UpdateOne(ctx,
		bson.M{"_id": gameID},
		bson.M{"$pull": bson.M{"playerIds": playerID}},
	)
	if err != nil {
		return fmt.Errorf("disconnecting player: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("disconnecting player from game %s: %w", gameID, store.ErrNotFound)
	}
	if _, err := s.players.UpdateOne(ctx,
		bson.M{"_id": playerID, "gameId": gameID},
		bson.M{"$unset": bson.M{"gameId": ""}},
	); err != nil {
		return fmt.Errorf("clearing player game: %w", err)
	}
	return nil
}

func (s *Store) CreateResult(ctx context.Context, r store.Result) (*store.Result, error) {
	r.ID = primitive.NewObjectID().Hex()
	r.CreatedAt = time.Now().UTC()
	if _, err := s.results.InsertOne(ctx, r); err != nil {
		return nil, fmt.Errorf("creating result: %w", err)
	}
	return &r, nil
}

func (s *Store) ListResults(ctx context.Context) ([]store.Result, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.results.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer cursor.Close(ctx)

	results := []store.Result{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}
	return results, nil
}

func (s *Store) CreateHighscore(ctx context.Context, username string, value float64) (*store.Highscore, error) {
	h := store.Highscore{
		ID:        primitive.NewObjectID().Hex(),
		Username:  username,
		Highscore: value,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.highscores.InsertOne(ctx, h); err != nil {
		return nil, fmt.Errorf("creating highscore: %w", err)
	}
	return &h, nil
}

func (s *Store) ListHighscores(ctx context.Context) ([]store.Highscore, error) {
	opts := options.Find().SetSort(bson.D{{Key: "highscore", Value: 1}})
	cursor, err := s.highscores.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing highscores: %w", err)
	}
	defer cursor.Close(ctx)

	highscores := []store.Highscore{}
	if err := cursor.All(ctx, &highscores); err != nil {
		return nil, fmt.Errorf("decoding highscores: %w", err)
	}
	return highscores, nil
}
