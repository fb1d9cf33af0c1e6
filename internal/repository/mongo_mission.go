package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fieldops/missiond/internal/models"
)

// MissionsCollection is the collection holding mission documents.
const MissionsCollection = "missions"

type mongoLeaf struct {
	Amount    primitive.Decimal128 `bson:"amount"`
	Completed bool                 `bson:"completed"`
}

type mongoCollect struct {
	Notes mongoLeaf `bson:"notes"`
	Coins mongoLeaf `bson:"coins"`
}

type mongoCashRefill struct {
	Amount    primitive.Decimal128 `bson:"amount"`
	Types     map[string]int       `bson:"types"`
	Completed bool                 `bson:"completed"`
}

type mongoRefill struct {
	Coins mongoCashRefill `bson:"coins"`
	Notes mongoCashRefill `bson:"notes"`
}

type mongoLabel struct {
	Text string `bson:"text,omitempty"`
	EN   string `bson:"en,omitempty"`
	FR   string `bson:"fr,omitempty"`
}

type mongoMaintenance struct {
	Task      mongoLabel `bson:"task"`
	Completed bool       `bson:"completed"`
}

type mongoPayload struct {
	Date        string             `bson:"date"`
	Cashier     string             `bson:"cashier"`
	MachineName string             `bson:"machineName"`
	QRCode      string             `bson:"qrCode"`
	Collect     *mongoCollect      `bson:"collect,omitempty"`
	Refill      *mongoRefill       `bson:"refill,omitempty"`
	Maintenance []mongoMaintenance `bson:"maintenance"`
}

type mongoMission struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	MissionID   string              `bson:"missionId"`
	Status      string              `bson:"status"`
	AssignedTo  primitive.ObjectID  `bson:"assignedTo"`
	OpenedBy    *primitive.ObjectID `bson:"openedBy"`
	Payload     mongoPayload        `bson:"payload"`
	Comment     string              `bson:"comment"`
	OpenedAt    *time.Time          `bson:"openedAt"`
	CompletedAt *time.Time          `bson:"completedAt"`
	CreatedAt   time.Time           `bson:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt"`
	Version     int64               `bson:"version"`
}

func toDecimal128(a models.Amount) primitive.Decimal128 {
	d, err := primitive.ParseDecimal128(a.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return d
}

func fromDecimal128(d primitive.Decimal128) models.Amount {
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return models.Amount{}
	}
	return models.Amount{Decimal: v}
}

func toMongoLeaf(l models.Leaf) mongoLeaf {
	return mongoLeaf{Amount: toDecimal128(l.Amount), Completed: l.Completed}
}

func (l mongoLeaf) model() models.Leaf {
	return models.Leaf{Amount: fromDecimal128(l.Amount), Completed: l.Completed}
}

func toMongoPayload(p models.Payload) mongoPayload {
	out := mongoPayload{
		Date:        p.Date,
		Cashier:     p.Cashier,
		MachineName: p.MachineName,
		QRCode:      p.QRCode,
		Maintenance: make([]mongoMaintenance, 0, len(p.Maintenance)),
	}
	if c := p.Collect; c != nil {
		out.Collect = &mongoCollect{Notes: toMongoLeaf(c.Notes), Coins: toMongoLeaf(c.Coins)}
	}
	if r := p.Refill; r != nil {
		out.Refill = &mongoRefill{
			Coins: mongoCashRefill{Amount: toDecimal128(r.Coins.Amount), Types: r.Coins.CoinTypes, Completed: r.Coins.Completed},
			Notes: mongoCashRefill{Amount: toDecimal128(r.Notes.Amount), Types: r.Notes.NoteTypes, Completed: r.Notes.Completed},
		}
	}
	for _, t := range p.Maintenance {
		label := mongoLabel{Text: t.Task.Text}
		if t.Task.Localized != nil {
			label = mongoLabel{EN: t.Task.Localized.EN, FR: t.Task.Localized.FR}
		}
		out.Maintenance = append(out.Maintenance, mongoMaintenance{Task: label, Completed: t.Completed})
	}
	return out
}

func (p mongoPayload) model() models.Payload {
	out := models.Payload{
		Date:        p.Date,
		Cashier:     p.Cashier,
		MachineName: p.MachineName,
		QRCode:      p.QRCode,
		Maintenance: make([]models.MaintenanceTask, 0, len(p.Maintenance)),
	}
	if c := p.Collect; c != nil {
		out.Collect = &models.Collect{Notes: c.Notes.model(), Coins: c.Coins.model()}
	}
	if r := p.Refill; r != nil {
		out.Refill = &models.Refill{
			Coins: models.CoinRefill{Amount: fromDecimal128(r.Coins.Amount), CoinTypes: nonNilTypes(r.Coins.Types), Completed: r.Coins.Completed},
			Notes: models.NoteRefill{Amount: fromDecimal128(r.Notes.Amount), NoteTypes: nonNilTypes(r.Notes.Types), Completed: r.Notes.Completed},
		}
	}
	for _, t := range p.Maintenance {
		label := models.PlainLabel(t.Task.Text)
		if t.Task.EN != "" || t.Task.FR != "" {
			label = models.BilingualLabel(t.Task.EN, t.Task.FR)
		}
		out.Maintenance = append(out.Maintenance, models.MaintenanceTask{Task: label, Completed: t.Completed})
	}
	return out
}

func nonNilTypes(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

// MongoMissionRepository stores missions as documents with an embedded payload.
// Assignee and opener are ObjectID references into the users collection.
type MongoMissionRepository struct {
	coll  *mongo.Collection
	users *MongoUserRepository
}

// NewMongoMissionRepository returns a repository over the missions collection of db.
func NewMongoMissionRepository(db *mongo.Database) *MongoMissionRepository {
	return &MongoMissionRepository{
		coll:  db.Collection(MissionsCollection),
		users: NewMongoUserRepository(db),
	}
}

// GetMission retrieves a mission by its identifier with usernames resolved.
func (r *MongoMissionRepository) GetMission(ctx context.Context, missionID string) (*models.Mission, error) {
	var doc mongoMission
	err := r.coll.FindOne(ctx, bson.M{"missionId": missionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find mission: %w", err)
	}
	missions, err := r.resolve(ctx, []mongoMission{doc})
	if err != nil {
		return nil, err
	}
	return &missions[0], nil
}

// CreateMission inserts a new mission at version 1.
// Returns ErrAlreadyExists if the identifier is taken.
func (r *MongoMissionRepository) CreateMission(ctx context.Context, m *models.Mission) error {
	assignee, err := primitive.ObjectIDFromHex(m.AssignedTo.ID)
	if err != nil {
		return fmt.Errorf("assignee id %q is not an ObjectID: %w", m.AssignedTo.ID, err)
	}
	_, err = r.coll.InsertOne(ctx, mongoMission{
		MissionID:  m.MissionID,
		Status:     string(m.Status),
		AssignedTo: assignee,
		Payload:    toMongoPayload(m.Payload),
		Comment:    m.Comment,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		Version:    1,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert mission: %w", err)
	}
	m.Version = 1
	return nil
}

// SaveMission writes the mutable fields of a loaded mission, guarded by its version.
func (r *MongoMissionRepository) SaveMission(ctx context.Context, m *models.Mission) error {
	var openedBy *primitive.ObjectID
	if m.OpenedBy != nil {
		oid, err := primitive.ObjectIDFromHex(m.OpenedBy.ID)
		if err != nil {
			return fmt.Errorf("opener id %q is not an ObjectID: %w", m.OpenedBy.ID, err)
		}
		openedBy = &oid
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"missionId": m.MissionID, "version": m.Version},
		bson.M{
			"$set": bson.M{
				"status":      string(m.Status),
				"openedBy":    openedBy,
				"payload":     toMongoPayload(m.Payload),
				"comment":     m.Comment,
				"openedAt":    m.OpenedAt,
				"completedAt": m.CompletedAt,
				"updatedAt":   m.UpdatedAt,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("update mission: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrStaleVersion
	}
	m.Version++
	return nil
}

// ListMissions returns all missions, unopened first, then by payload date descending.
func (r *MongoMissionRepository) ListMissions(ctx context.Context, filter models.MissionFilter) ([]models.Mission, error) {
	missions, err := r.find(ctx, statusFilter(bson.M{}, filter), options.Find())
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(missions, func(a, b models.Mission) int {
		if c := cmp.Compare(a.Status.Rank(), b.Status.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(b.Payload.Date, a.Payload.Date)
	})
	return missions, nil
}

// ListMissionsByAssignee returns one page of a worker's missions, newest first.
func (r *MongoMissionRepository) ListMissionsByAssignee(
	ctx context.Context,
	userID string,
	filter models.MissionFilter,
	offset, limit int,
) ([]models.Mission, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return []models.Mission{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	return r.find(ctx, statusFilter(bson.M{"assignedTo": oid}, filter), opts)
}

// CountMissionsByAssignee counts a worker's missions matching filter.
func (r *MongoMissionRepository) CountMissionsByAssignee(ctx context.Context, userID string, filter models.MissionFilter) (int, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return 0, nil
	}
	n, err := r.coll.CountDocuments(ctx, statusFilter(bson.M{"assignedTo": oid}, filter))
	if err != nil {
		return 0, fmt.Errorf("count missions: %w", err)
	}
	return int(n), nil
}

func statusFilter(f bson.M, filter models.MissionFilter) bson.M {
	if filter.Status != "" {
		f["status"] = string(filter.Status)
	}
	return f
}

func (r *MongoMissionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Mission, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find missions: %w", err)
	}
	var docs []mongoMission
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode missions: %w", err)
	}
	return r.resolve(ctx, docs)
}

// resolve converts documents to models, filling in usernames of referenced users.
func (r *MongoMissionRepository) resolve(ctx context.Context, docs []mongoMission) ([]models.Mission, error) {
	missions := make([]models.Mission, 0, len(docs))
	if len(docs) == 0 {
		return missions, nil
	}

	seen := map[primitive.ObjectID]struct{}{}
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, d := range docs {
		add(d.AssignedTo)
		if d.OpenedBy != nil {
			add(*d.OpenedBy)
		}
	}
	names, err := r.users.usernames(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, d := range docs {
		m := models.Mission{
			MissionID:   d.MissionID,
			Status:      models.Status(d.Status),
			AssignedTo:  models.UserRef{ID: d.AssignedTo.Hex(), Username: names[d.AssignedTo]},
			Payload:     d.Payload.model(),
			Comment:     d.Comment,
			OpenedAt:    d.OpenedAt,
			CompletedAt: d.CompletedAt,
			CreatedAt:   d.CreatedAt,
			UpdatedAt:   d.UpdatedAt,
			Version:     d.Version,
		}
		if d.OpenedBy != nil {
			m.OpenedBy = &models.UserRef{ID: d.OpenedBy.Hex(), Username: names[*d.OpenedBy]}
		}
		missions = append(missions, m)
	}
	return missions, nil
}
