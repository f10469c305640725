package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skygkruger/vaultagent-sub000/internal/audit"
	"github.com/skygkruger/vaultagent-sub000/internal/secret"
	"github.com/skygkruger/vaultagent-sub000/internal/session"
)

// Mongo backs every store interface with one client and one database.
// Collections: vaults, secrets, sessions, audit.
type Mongo struct {
	client   *mongo.Client
	vaults   *mongo.Collection
	secrets  *mongo.Collection
	sessions *mongo.Collection
	auditC   *mongo.Collection
}

func ConnectMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}

	db := cli.Database(dbName)
	m := &Mongo{
		client:   cli,
		vaults:   db.Collection("vaults"),
		secrets:  db.Collection("secrets"),
		sessions: db.Collection("sessions"),
		auditC:   db.Collection("audit"),
	}

	// Index creation is best-effort, as elsewhere in this codebase.
	_, _ = m.secrets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "vault_id", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = m.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "token_hash", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = m.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	_, _ = m.auditC.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	_, _ = m.vaults.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "account_id", Value: 1}},
	})

	return m, nil
}

func (m *Mongo) Close(ctx context.Context) error { return m.client.Disconnect(ctx) }

// Client exposes the underlying connection so sibling stores can share it.
func (m *Mongo) Client() *mongo.Client { return m.client }

func isDuplicateKey(err error) bool {
	var wex mongo.WriteException
	if errors.As(err, &wex) {
		for _, we := range wex.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	return false
}

// ---------- vaults ----------

type vaultDoc struct {
	ID        string    `bson:"_id"`
	AccountID string    `bson:"account_id"`
	Name      string    `bson:"name"`
	CreatedAt time.Time `bson:"created_at"`
}

func (m *Mongo) CreateVault(ctx context.Context, v Vault) error {
	_, err := m.vaults.InsertOne(ctx, vaultDoc{ID: v.ID, AccountID: v.AccountID, Name: v.Name, CreatedAt: v.CreatedAt})
	if isDuplicateKey(err) {
		return ErrDuplicateName
	}
	return err
}

func (m *Mongo) GetVault(ctx context.Context, id string) (Vault, error) {
	var doc vaultDoc
	err := m.vaults.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Vault{}, ErrNotFound
	}
	if err != nil {
		return Vault{}, err
	}
	return Vault{ID: doc.ID, AccountID: doc.AccountID, Name: doc.Name, CreatedAt: doc.CreatedAt}, nil
}

func (m *Mongo) ListVaults(ctx context.Context, accountID string) ([]Vault, error) {
	cur, err := m.vaults.Find(ctx, bson.M{"account_id": accountID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Vault
	for cur.Next(ctx) {
		var doc vaultDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, Vault{ID: doc.ID, AccountID: doc.AccountID, Name: doc.Name, CreatedAt: doc.CreatedAt})
	}
	return out, cur.Err()
}

func (m *Mongo) DeleteVault(ctx context.Context, id string) error {
	res, err := m.vaults.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	_, err = m.secrets.DeleteMany(ctx, bson.M{"vault_id": id})
	return err
}

func (m *Mongo) CountVaults(ctx context.Context, accountID string) (int, error) {
	n, err := m.vaults.CountDocuments(ctx, bson.M{"account_id": accountID})
	return int(n), err
}

// ---------- secrets ----------

// secretDoc is the persisted envelope format. The four cryptographic fields
// are stored as raw bytes, bit-exact; base64 exists only on the wire.
type secretDoc struct {
	VaultID        string    `bson:"vault_id"`
	Name           string    `bson:"name"`
	Ciphertext     []byte    `bson:"ciphertext"`
	Nonce          []byte    `bson:"nonce"`
	Salt           []byte    `bson:"salt"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
	LastAccessedAt time.Time `bson:"last_accessed_at,omitempty"`
}

func envelopeFromDoc(d secretDoc) secret.Envelope {
	return secret.Envelope{
		Name:           d.Name,
		Ciphertext:     d.Ciphertext,
		Nonce:          d.Nonce,
		Salt:           d.Salt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		LastAccessedAt: d.LastAccessedAt,
	}
}

func (m *Mongo) UpsertSecret(ctx context.Context, vaultID string, env secret.Envelope) (bool, error) {
	res, err := m.secrets.UpdateOne(ctx,
		bson.M{"vault_id": vaultID, "name": env.Name},
		bson.M{
			"$set": bson.M{
				"ciphertext": env.Ciphertext,
				"nonce":      env.Nonce,
				"salt":       env.Salt,
				"updated_at": env.UpdatedAt,
			},
			"$setOnInsert": bson.M{
				"created_at": env.CreatedAt,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

func (m *Mongo) GetSecret(ctx context.Context, vaultID, name string) (secret.Envelope, error) {
	var doc secretDoc
	err := m.secrets.FindOne(ctx, bson.M{"vault_id": vaultID, "name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return secret.Envelope{}, ErrNotFound
	}
	if err != nil {
		return secret.Envelope{}, err
	}
	return envelopeFromDoc(doc), nil
}

func (m *Mongo) ListSecrets(ctx context.Context, vaultID string, names []string) ([]secret.Envelope, error) {
	filter := bson.M{"vault_id": vaultID}
	if names != nil {
		filter["name"] = bson.M{"$in": names}
	}
	cur, err := m.secrets.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []secret.Envelope
	for cur.Next(ctx) {
		var doc secretDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, envelopeFromDoc(doc))
	}
	return out, cur.Err()
}

func (m *Mongo) SecretNames(ctx context.Context, vaultID string) ([]string, error) {
	raw, err := m.secrets.Distinct(ctx, "name", bson.M{"vault_id": vaultID})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Mongo) DeleteSecret(ctx context.Context, vaultID, name string) error {
	res, err := m.secrets.DeleteOne(ctx, bson.M{"vault_id": vaultID, "name": name})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) CountSecrets(ctx context.Context, vaultID string) (int, error) {
	n, err := m.secrets.CountDocuments(ctx, bson.M{"vault_id": vaultID})
	return int(n), err
}

func (m *Mongo) TouchSecrets(ctx context.Context, vaultID string, names []string, at time.Time) error {
	if len(names) == 0 {
		return nil
	}
	_, err := m.secrets.UpdateMany(ctx,
		bson.M{"vault_id": vaultID, "name": bson.M{"$in": names}},
		bson.M{"$set": bson.M{"last_accessed_at": at}},
	)
	return err
}

// ---------- sessions ----------

type sessionDoc struct {
	ID                 string     `bson:"_id"`
	VaultID            string     `bson:"vault_id"`
	AccountID          string     `bson:"account_id"`
	TokenHash          string     `bson:"token_hash"`
	AllowedSecretNames []string   `bson:"allowed_secret_names"`
	AgentLabel         string     `bson:"agent_label"`
	CreatedAt          time.Time  `bson:"created_at"`
	ExpiresAt          time.Time  `bson:"expires_at"`
	RevokedAt          *time.Time `bson:"revoked_at,omitempty"`
}

func sessionFromDoc(d sessionDoc) session.Session {
	return session.Session{
		ID:                 d.ID,
		VaultID:            d.VaultID,
		AccountID:          d.AccountID,
		TokenHash:          d.TokenHash,
		AllowedSecretNames: d.AllowedSecretNames,
		AgentLabel:         d.AgentLabel,
		CreatedAt:          d.CreatedAt,
		ExpiresAt:          d.ExpiresAt,
		RevokedAt:          d.RevokedAt,
	}
}

func (m *Mongo) Insert(ctx context.Context, s session.Session) error {
	_, err := m.sessions.InsertOne(ctx, sessionDoc{
		ID:                 s.ID,
		VaultID:            s.VaultID,
		AccountID:          s.AccountID,
		TokenHash:          s.TokenHash,
		AllowedSecretNames: s.AllowedSecretNames,
		AgentLabel:         s.AgentLabel,
		CreatedAt:          s.CreatedAt,
		ExpiresAt:          s.ExpiresAt,
		RevokedAt:          s.RevokedAt,
	})
	return err
}

func (m *Mongo) Get(ctx context.Context, id string) (session.Session, error) {
	return m.findSession(ctx, bson.M{"_id": id})
}

func (m *Mongo) FindByTokenHash(ctx context.Context, hash string) (session.Session, error) {
	return m.findSession(ctx, bson.M{"token_hash": hash})
}

func (m *Mongo) findSession(ctx context.Context, filter bson.M) (session.Session, error) {
	var doc sessionDoc
	err := m.sessions.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return session.Session{}, ErrNotFound
	}
	if err != nil {
		return session.Session{}, err
	}
	return sessionFromDoc(doc), nil
}

func (m *Mongo) List(ctx context.Context, accountID string) ([]session.Session, error) {
	cur, err := m.sessions.Find(ctx, bson.M{"account_id": accountID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []session.Session
	for cur.Next(ctx) {
		var doc sessionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, sessionFromDoc(doc))
	}
	return out, cur.Err()
}

func (m *Mongo) MarkRevoked(ctx context.Context, id string, at time.Time) error {
	// Filter on revoked_at unset so a second revoke cannot move the timestamp.
	res, err := m.sessions.UpdateOne(ctx,
		bson.M{"_id": id, "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revoked_at": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Already revoked or unknown; distinguish for the caller.
		n, err := m.sessions.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (m *Mongo) RevokeByVault(ctx context.Context, vaultID string, at time.Time) error {
	_, err := m.sessions.UpdateMany(ctx,
		bson.M{"vault_id": vaultID, "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revoked_at": at}},
	)
	return err
}

func (m *Mongo) CountCreatedSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	n, err := m.sessions.CountDocuments(ctx, bson.M{
		"account_id": accountID,
		"created_at": bson.M{"$gte": since},
	})
	return int(n), err
}

// ---------- audit ----------

type auditDoc struct {
	ID            string    `bson:"_id"`
	AccountID     string    `bson:"account_id"`
	Action        string    `bson:"action"`
	Target        string    `bson:"target"`
	AgentLabel    string    `bson:"agent_label,omitempty"`
	SessionID     string    `bson:"session_id,omitempty"`
	SourceAddress string    `bson:"source_address,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
}

func (m *Mongo) Append(ctx context.Context, e audit.Entry) error {
	_, err := m.auditC.InsertOne(ctx, auditDoc{
		ID:            e.ID,
		AccountID:     e.AccountID,
		Action:        string(e.Action),
		Target:        e.Target,
		AgentLabel:    e.AgentLabel,
		SessionID:     e.SessionID,
		SourceAddress: e.SourceAddress,
		CreatedAt:     e.CreatedAt,
	})
	return err
}

func (m *Mongo) ListSince(ctx context.Context, accountID string, since time.Time) ([]audit.Entry, error) {
	cur, err := m.auditC.Find(ctx,
		bson.M{"account_id": accountID, "created_at": bson.M{"$gt": since}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []audit.Entry
	for cur.Next(ctx) {
		var doc auditDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, audit.Entry{
			ID:            doc.ID,
			AccountID:     doc.AccountID,
			Action:        audit.Action(doc.Action),
			Target:        doc.Target,
			AgentLabel:    doc.AgentLabel,
			SessionID:     doc.SessionID,
			SourceAddress: doc.SourceAddress,
			CreatedAt:     doc.CreatedAt,
		})
	}
	return out, cur.Err()
}
