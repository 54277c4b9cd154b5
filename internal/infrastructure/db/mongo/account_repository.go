package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
)

const accountsCollection = "accounts"

// AccountRepository is the authoritative account -> role store.
type AccountRepository struct {
	coll *mongo.Collection
}

var (
	_ ports.RoleLookup = (*AccountRepository)(nil)
	_ ports.RoleWriter = (*AccountRepository)(nil)
)

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountsCollection)}
}

type mongoAccount struct {
	Identity  string `bson:"identity"`
	Role      string `bson:"role"`
	UpdatedAt int64  `bson:"updated_at"`
}

// LookupRole returns the stored role of identity. The value is returned as
// stored; callers decide what an unknown role means.
func (r *AccountRepository) LookupRole(ctx context.Context, identity string) (domain.Role, error) {
	identity = normalizeIdentity(identity)
	if identity == "" {
		return "", domain.ErrUnauthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var acc mongoAccount
	if err := r.coll.FindOne(ctx, bson.M{"identity": identity}).Decode(&acc); err != nil {
		return "", classify("lookup role", err)
	}
	return domain.Role(acc.Role), nil
}

// SetRole upserts the role of identity.
func (r *AccountRepository) SetRole(ctx context.Context, identity string, role domain.Role) error {
	identity = normalizeIdentity(identity)
	if identity == "" {
		return domain.ErrUnauthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"identity": identity},
		bson.M{"$set": bson.M{"role": string(role), "updated_at": time.Now().Unix()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return classify(fmt.Sprintf("set role of %s", identity), err)
	}
	return nil
}

// EnsureIndexes creates the unique identity index on the accounts collection.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "identity", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func normalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
