package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"refsync/entity"
	"refsync/impl/core"
	"refsync/internal/config"
)

const (
	collectionUsers         = "users"
	collectionRegistrations = "registrations"
	collectionCalculations  = "reward_calculations"
	collectionNotifications = "user_notifications"
	collectionSettings      = "settings"

	priceConfigId = "base_price"
)

type MongoDB struct {
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	return &MongoDB{
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(ctx context.Context, connection *mongo.Client) {
	_ = connection.Disconnect(ctx)
}

// withTx runs fn inside a session transaction so that multi-document
// commits (calculation, payout, achievement, batch import) are
// all-or-nothing.
func (m *MongoDB) withTx(ctx context.Context, fn func(sc mongo.SessionContext, db *mongo.Database) error) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	session, err := connection.StartSession()
	if err != nil {
		return fmt.Errorf("mongodb session: %w", err)
	}
	defer session.EndSession(ctx)

	db := connection.Database(m.database)
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, db)
	})
	return err
}

// --- registrations ---

// InsertRegistrations commits a whole import batch or nothing.
// A batch carrying an email that is already queued fails with the
// offending email named, before any document is written.
func (m *MongoDB) InsertRegistrations(ctx context.Context, regs []*entity.RegistrationRequest) error {
	emails := make([]string, len(regs))
	docs := make([]interface{}, len(regs))
	for i, reg := range regs {
		emails[i] = reg.Email
		docs[i] = reg
	}
	return m.withTx(ctx, func(sc mongo.SessionContext, db *mongo.Database) error {
		collection := db.Collection(collectionRegistrations)
		var existing entity.RegistrationRequest
		err := collection.FindOne(sc, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: emails}}}}).Decode(&existing)
		if err == nil {
			return fmt.Errorf("registration %s is already queued", existing.Email)
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return err
		}
		_, err = collection.InsertMany(sc, docs)
		return err
	})
}

func (m *MongoDB) Registrations(ctx context.Context) ([]*entity.RegistrationRequest, error) {
	return m.findRegistrations(ctx, bson.D{})
}

func (m *MongoDB) RegistrationsByStatus(ctx context.Context, status entity.RegistrationStatus) ([]*entity.RegistrationRequest, error) {
	return m.findRegistrations(ctx, bson.D{{Key: "status", Value: status}})
}

// findRegistrations always sorts ascending by creation time: the queue
// is FIFO by contract, never by store iteration order.
func (m *MongoDB) findRegistrations(ctx context.Context, filter bson.D) ([]*entity.RegistrationRequest, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionRegistrations)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(ctx)

	var regs []*entity.RegistrationRequest
	if err = cursor.All(ctx, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (m *MongoDB) RegistrationByEmail(ctx context.Context, email string) (*entity.RegistrationRequest, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionRegistrations)
	var reg entity.RegistrationRequest
	err = collection.FindOne(ctx, bson.D{{Key: "_id", Value: email}}).Decode(&reg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &reg, nil
}

func (m *MongoDB) SetRegistrationStatus(ctx context.Context, email string, status entity.RegistrationStatus) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionRegistrations)
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: status}}}}
	_, err = collection.UpdateOne(ctx, bson.D{{Key: "_id", Value: email}}, update)
	return err
}

func (m *MongoDB) DeleteRegistration(ctx context.Context, email string) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionRegistrations)
	_, err = collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: email}})
	return err
}

func (m *MongoDB) DeleteResettableRegistrations(ctx context.Context) (int64, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionRegistrations)
	filter := bson.D{{Key: "status", Value: bson.D{{Key: "$in", Value: bson.A{entity.StatusDraft, entity.StatusPaid}}}}}
	res, err := collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m *MongoDB) CountRegistrationsSince(ctx context.Context, since time.Time) (int64, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionRegistrations)
	filter := bson.D{{Key: "created_at", Value: bson.D{{Key: "$gte", Value: since}}}}
	return collection.CountDocuments(ctx, filter)
}

// --- users ---

func (m *MongoDB) UserByEmail(ctx context.Context, email string) (*entity.User, error) {
	return m.findUser(ctx, bson.D{{Key: "_id", Value: email}})
}

func (m *MongoDB) UserByToken(ctx context.Context, token string) (*entity.User, error) {
	return m.findUser(ctx, bson.D{{Key: "token", Value: token}})
}

func (m *MongoDB) UserByReferralCode(ctx context.Context, code string) (*entity.User, error) {
	return m.findUser(ctx, bson.D{{Key: "referral_code", Value: code}})
}

func (m *MongoDB) findUser(ctx context.Context, filter bson.D) (*entity.User, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	var user entity.User
	err = collection.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &user, nil
}

func (m *MongoDB) CountReferrals(ctx context.Context, code string) (int64, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	return collection.CountDocuments(ctx, bson.D{{Key: "referred_by", Value: code}})
}

// --- reward ledger ---

func (m *MongoDB) CommitCalculation(ctx context.Context, res *core.CalculationResult) error {
	return m.withTx(ctx, func(sc mongo.SessionContext, db *mongo.Database) error {
		for _, entry := range res.Entries {
			if _, err := db.Collection(collectionCalculations).InsertOne(sc, entry); err != nil {
				return err
			}
		}
		if res.LevelUpdate != nil {
			update := bson.D{{Key: "$set", Value: bson.D{{Key: "level", Value: res.LevelUpdate.Level}}}}
			if _, err := db.Collection(collectionUsers).UpdateOne(sc, bson.D{{Key: "_id", Value: res.LevelUpdate.Email}}, update); err != nil {
				return err
			}
		}
		for _, notif := range res.Notifications {
			if _, err := db.Collection(collectionNotifications).InsertOne(sc, notif); err != nil {
				return err
			}
		}
		update := bson.D{{Key: "$set", Value: bson.D{{Key: "reward_status", Value: entity.RewardCalculated}}}}
		_, err := db.Collection(collectionRegistrations).UpdateOne(sc, bson.D{{Key: "_id", Value: res.Registration.Email}}, update)
		return err
	})
}

// CommitPayout flips the entry READY_TO_SEND -> SENT with a
// conditional write. A zero match means another actor settled the
// entry first; the transaction aborts with entity.ErrAlreadySent and
// the balance is not incremented.
func (m *MongoDB) CommitPayout(ctx context.Context, calc *entity.RewardCalculation, sentAt time.Time, notif *entity.Notification) error {
	return m.withTx(ctx, func(sc mongo.SessionContext, db *mongo.Database) error {
		filter := bson.D{{Key: "_id", Value: calc.ID}, {Key: "status", Value: entity.CalcReadyToSend}}
		update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: entity.CalcSent}, {Key: "sent_at", Value: sentAt}}}}
		res, err := db.Collection(collectionCalculations).UpdateOne(sc, filter, update)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return entity.ErrAlreadySent
		}

		increment := bson.D{{Key: "$inc", Value: bson.D{{Key: "balance", Value: calc.BonusAmount}}}}
		if _, err = db.Collection(collectionUsers).UpdateOne(sc, bson.D{{Key: "_id", Value: calc.TargetEmail}}, increment); err != nil {
			return err
		}

		_, err = db.Collection(collectionNotifications).InsertOne(sc, notif)
		return err
	})
}

func (m *MongoDB) CommitAchievement(ctx context.Context, calc *entity.RewardCalculation, notif *entity.Notification) error {
	return m.withTx(ctx, func(sc mongo.SessionContext, db *mongo.Database) error {
		increment := bson.D{{Key: "$inc", Value: bson.D{{Key: "balance", Value: calc.BonusAmount}}}}
		if _, err := db.Collection(collectionUsers).UpdateOne(sc, bson.D{{Key: "_id", Value: calc.TargetEmail}}, increment); err != nil {
			return err
		}
		if _, err := db.Collection(collectionCalculations).InsertOne(sc, calc); err != nil {
			return err
		}
		_, err := db.Collection(collectionNotifications).InsertOne(sc, notif)
		return err
	})
}

func (m *MongoDB) CalculationByID(ctx context.Context, id string) (*entity.RewardCalculation, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionCalculations)
	var calc entity.RewardCalculation
	err = collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&calc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &calc, nil
}

func (m *MongoDB) CalculationsByStatus(ctx context.Context, status entity.CalculationStatus) ([]*entity.RewardCalculation, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionCalculations)
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := collection.Find(ctx, bson.D{{Key: "status", Value: status}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(ctx)

	var calcs []*entity.RewardCalculation
	if err = cursor.All(ctx, &calcs); err != nil {
		return nil, err
	}
	return calcs, nil
}

func (m *MongoDB) DeleteCalculationsByStatus(ctx context.Context, status entity.CalculationStatus) (int64, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionCalculations)
	res, err := collection.DeleteMany(ctx, bson.D{{Key: "status", Value: status}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// --- price configuration ---

type priceDoc struct {
	ID    string             `bson:"_id"`
	Price entity.PriceConfig `bson:"price"`
}

func (m *MongoDB) PriceConfig(ctx context.Context) (*entity.PriceConfig, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionSettings)
	var doc priceDoc
	err = collection.FindOne(ctx, bson.D{{Key: "_id", Value: priceConfigId}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &doc.Price, nil
}

func (m *MongoDB) SavePriceConfig(ctx context.Context, price *entity.PriceConfig) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionSettings)
	update := bson.D{{Key: "$set", Value: priceDoc{ID: priceConfigId, Price: *price}}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(ctx, bson.D{{Key: "_id", Value: priceConfigId}}, update, opts)
	return err
}
