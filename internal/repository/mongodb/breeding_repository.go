package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdbook/internal/domain/breeding"
	"github.com/mamadbah2/herdbook/internal/domain/models"
)

var _ breeding.Repository = (*MongoDBRepository)(nil)

var errVersionMismatch = &models.ConflictError{
	Message: models.ErrConcurrencyConflict.Error(),
	Cause:   models.ErrConcurrencyConflict,
}

// FindByCattleID loads the aggregate and its full event log.
func (r *MongoDBRepository) FindByCattleID(ctx context.Context, cattleID int64) (*breeding.Aggregate, error) {
	var doc aggregateDocument
	err := r.collection(aggregatesCollection).FindOne(ctx, bson.M{"cattle_id": cattleID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, models.WrapInfra("find breeding aggregate", err)
	}

	history, err := r.GetBreedingHistory(ctx, cattleID, nil, nil)
	if err != nil {
		return nil, err
	}

	aggregate := doc.toAggregate(history)
	return &aggregate, nil
}

// Save writes the aggregate and appends the events the stored copy does not
// have yet, in one transaction.
func (r *MongoDBRepository) Save(ctx context.Context, aggregate breeding.Aggregate) (breeding.Aggregate, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return breeding.Aggregate{}, models.WrapInfra("start mongodb session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		storedLen, err := r.writeAggregate(sc, aggregate)
		if err != nil {
			return nil, err
		}
		return nil, r.appendEvents(sc, aggregate, storedLen)
	})
	if err != nil {
		return breeding.Aggregate{}, models.WrapInfra("save breeding aggregate", err)
	}

	r.logger.Debug("breeding aggregate saved",
		zap.Int64("cattle_id", aggregate.CattleID()),
		zap.Int("version", aggregate.Version()))
	return aggregate, nil
}

// writeAggregate inserts or version-guards the update of the aggregate and
// returns the history length that was stored before.
func (r *MongoDBRepository) writeAggregate(ctx context.Context, aggregate breeding.Aggregate) (int, error) {
	coll := r.collection(aggregatesCollection)
	doc := toAggregateDocument(aggregate)

	if aggregate.Version() > 1 {
		var previous aggregateDocument
		err := coll.FindOneAndUpdate(ctx,
			bson.M{"cattle_id": aggregate.CattleID(), "version": aggregate.Version() - 1},
			bson.M{"$set": doc},
			options.FindOneAndUpdate().SetReturnDocument(options.Before),
		).Decode(&previous)
		switch {
		case err == nil:
			return previous.HistoryLength, nil
		case !errors.Is(err, mongo.ErrNoDocuments):
			return 0, fmt.Errorf("update breeding aggregate: %w", err)
		case aggregate.Version() != aggregate.HistoryLen()+1:
			return 0, errVersionMismatch
		}
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if aggregate.Version() == 1 {
				return 0, &models.ConflictError{Message: "breeding record already exists for this animal", Cause: err}
			}
			return 0, errVersionMismatch
		}
		return 0, fmt.Errorf("insert breeding aggregate: %w", err)
	}
	return 0, nil
}

func (r *MongoDBRepository) appendEvents(ctx context.Context, aggregate breeding.Aggregate, storedLen int) error {
	history := aggregate.History()
	if storedLen >= len(history) {
		return nil
	}

	docs := make([]interface{}, 0, len(history)-storedLen)
	for seq := storedLen; seq < len(history); seq++ {
		docs = append(docs, toEventDocument(aggregate.CattleID(), aggregate.OwnerID(), seq, history[seq]))
	}
	if _, err := r.collection(eventsCollection).InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errVersionMismatch
		}
		return fmt.Errorf("append breeding events: %w", err)
	}
	return nil
}

// GetBreedingHistory returns the animal's events ascending by timestamp,
// bounded inclusively by start and end when given.
func (r *MongoDBRepository) GetBreedingHistory(ctx context.Context, cattleID int64, start, end *time.Time) ([]models.BreedingEvent, error) {
	filter := bson.M{"cattle_id": cattleID}
	if window := timeRange(start, end); len(window) > 0 {
		filter["timestamp"] = window
	}

	cursor, err := r.collection(eventsCollection).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}}))
	if err != nil {
		return nil, models.WrapInfra("query breeding events", err)
	}
	defer cursor.Close(ctx)

	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, models.WrapInfra("decode breeding events", err)
	}

	events := make([]models.BreedingEvent, 0, len(docs))
	for _, doc := range docs {
		event := doc.toEvent()
		if !event.Type().IsKnown() {
			r.logger.Warn("unrecognized breeding event row",
				zap.Int64("cattle_id", cattleID),
				zap.Int("seq", doc.Seq),
				zap.String("type", doc.Type))
		}
		events = append(events, event)
	}
	return events, nil
}

// FindCattleNeedingAttention pre-selects candidates with a query mirroring
// breeding.NeedsAttention and confirms each one with the predicate itself.
func (r *MongoDBRepository) FindCattleNeedingAttention(ctx context.Context, ownerID int64, referenceDate time.Time) ([]int64, error) {
	checkCutoff := referenceDate.Add(-breeding.PregnancyCheckAfter)
	waitCutoff := referenceDate.Add(-breeding.VoluntaryWaitingPeriod)

	filter := bson.M{
		"owner_id": ownerID,
		"$or": bson.A{
			bson.M{"status.phase": models.PhaseInseminated, "status.inseminated_at": bson.M{"$lt": checkCutoff}},
			bson.M{"status.phase": models.PhasePregnant, "status.scheduled_pregnancy_check_date": bson.M{"$lt": referenceDate}},
			bson.M{"status.phase": models.PhasePregnant, "status.expected_calving_date": bson.M{"$lt": referenceDate}},
			bson.M{"status.phase": models.PhasePostCalving, "status.calved_at": bson.M{"$lt": waitCutoff}},
			bson.M{"status.phase": models.PhaseNotBreeding, "status.last_calved_at": bson.M{"$lt": waitCutoff}},
		},
	}

	cursor, err := r.collection(aggregatesCollection).Find(ctx, filter,
		options.Find().
			SetProjection(bson.M{"cattle_id": 1, "status": 1}).
			SetSort(bson.D{{Key: "cattle_id", Value: 1}}))
	if err != nil {
		return nil, models.WrapInfra("query cattle needing attention", err)
	}
	defer cursor.Close(ctx)

	ids := make([]int64, 0)
	for cursor.Next(ctx) {
		var doc aggregateDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, models.WrapInfra("decode breeding aggregate", err)
		}
		if breeding.NeedsAttention(doc.Status.toStatus(), referenceDate) {
			ids = append(ids, doc.CattleID)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, models.WrapInfra("iterate cattle needing attention", err)
	}
	return ids, nil
}

// UpdateBreedingStatusDays overwrites status, summary and last_updated only,
// guarded on the stored history_length.
func (r *MongoDBRepository) UpdateBreedingStatusDays(ctx context.Context, cattleID int64, historyLen int, status models.BreedingStatus, summary models.BreedingSummary, referenceDate time.Time) error {
	coll := r.collection(aggregatesCollection)
	res, err := coll.UpdateOne(ctx,
		bson.M{"cattle_id": cattleID, "history_length": historyLen},
		bson.M{"$set": bson.M{
			"status":       toStatusDocument(status),
			"summary":      toSummaryDocument(summary),
			"last_updated": referenceDate,
		}})
	if err != nil {
		return models.WrapInfra("update breeding status days", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"cattle_id": cattleID})
	if err != nil {
		return models.WrapInfra("count breeding aggregates", err)
	}
	if n == 0 {
		return models.NewNotFoundError("breeding record for cattle", cattleID)
	}
	return errVersionMismatch
}

type eventCountRow struct {
	Type      string `bson:"_id"`
	Count     int    `bson:"count"`
	Difficult int    `bson:"difficult"`
}

// GetBreedingStatistics counts the owner's events in [start, end] with an
// aggregation pipeline grouped by event type.
func (r *MongoDBRepository) GetBreedingStatistics(ctx context.Context, ownerID int64, start, end time.Time) (models.HerdStatistics, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"owner_id":  ownerID,
			"timestamp": bson.M{"$gte": start, "$lte": end},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$type",
			"count":     bson.M{"$sum": 1},
			"difficult": bson.M{"$sum": bson.M{"$cond": bson.A{"$is_difficult_birth", 1, 0}}},
		}}},
	}

	cursor, err := r.collection(eventsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return models.HerdStatistics{}, models.WrapInfra("aggregate breeding statistics", err)
	}
	defer cursor.Close(ctx)

	var rows []eventCountRow
	if err := cursor.All(ctx, &rows); err != nil {
		return models.HerdStatistics{}, models.WrapInfra("decode breeding statistics", err)
	}

	var inseminations, pregnancies, calvings, difficult int
	for _, row := range rows {
		switch models.EventType(row.Type) {
		case models.EventInseminate:
			inseminations = row.Count
		case models.EventConfirmPregnancy:
			pregnancies = row.Count
		case models.EventCalve:
			calvings = row.Count
			difficult = row.Difficult
		}
	}
	return breeding.NewHerdStatistics(ownerID, start, end, inseminations, pregnancies, calvings, difficult), nil
}

// ListAggregates returns a page of aggregate references ordered by cattle id.
func (r *MongoDBRepository) ListAggregates(ctx context.Context, limit, offset int) ([]breeding.AggregateRef, error) {
	opts := options.Find().
		SetProjection(bson.M{"cattle_id": 1, "owner_id": 1, "last_updated": 1}).
		SetSort(bson.D{{Key: "cattle_id", Value: 1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection(aggregatesCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, models.WrapInfra("list breeding aggregates", err)
	}
	defer cursor.Close(ctx)

	var docs []aggregateDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, models.WrapInfra("decode breeding aggregates", err)
	}

	refs := make([]breeding.AggregateRef, 0, len(docs))
	for _, doc := range docs {
		refs = append(refs, breeding.AggregateRef{CattleID: doc.CattleID, OwnerID: doc.OwnerID, LastUpdated: doc.LastUpdated})
	}
	return refs, nil
}

func timeRange(start, end *time.Time) bson.M {
	window := bson.M{}
	if start != nil {
		window["$gte"] = *start
	}
	if end != nil {
		window["$lte"] = *end
	}
	return window
}
