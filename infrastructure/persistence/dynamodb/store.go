// Package dynamodb implements the EventStore port on a single DynamoDB
// table. Events partition by ID with a date GSI for day queries;
// reflections key by type and date.
package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"mnemo/application/ports"
	"mnemo/domain/core/entities"
	"mnemo/domain/core/valueobjects"
	"mnemo/infrastructure/persistence/schema"
	"mnemo/pkg/errors"
)

const (
	eventPKPrefix      = "EVENT#"
	reflectionPKPrefix = "REFLECTION#"
	metaSK             = "META"

	// DynamoDB caps BatchWriteItem at 25 requests
	batchWriteLimit = 25
)

// eventItem wraps an EventRecord with the table's key attributes
type eventItem struct {
	PK     string `dynamodbav:"PK"` // EVENT#<event_id>
	SK     string `dynamodbav:"SK"` // META
	GSI1PK string `dynamodbav:"GSI1PK"` // DATE#<YYYY-MM-DD>
	GSI1SK string `dynamodbav:"GSI1SK"` // TS#<TimeKeyFormat>, fixed width so it range-sorts

	schema.EventRecord
}

// reflectionItem wraps a ReflectionRecord with the table's key attributes
type reflectionItem struct {
	PK string `dynamodbav:"PK"` // REFLECTION#<type>#<date>
	SK string `dynamodbav:"SK"` // META

	schema.ReflectionRecord
}

// Store implements ports.EventStore on DynamoDB
type Store struct {
	client    *dynamodb.Client
	tableName string
	dateIndex string
	logger    *zap.Logger
}

var _ ports.EventStore = (*Store)(nil)

// NewStore creates a DynamoDB-backed event store. dateIndex names the
// GSI that partitions events by calendar day.
func NewStore(client *dynamodb.Client, tableName string, dateIndex string, logger *zap.Logger) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		dateIndex: dateIndex,
		logger:    logger,
	}
}

// StoreEvent persists an event, overwriting any previous version
func (s *Store) StoreEvent(ctx context.Context, event *entities.Event) error {
	record := schema.FromEvent(event)
	item, err := attributevalue.MarshalMap(eventItem{
		PK:          eventPKPrefix + record.ID,
		SK:          metaSK,
		GSI1PK:      "DATE#" + record.Timestamp[:len(schema.DateKeyFormat)],
		GSI1SK:      "TS#" + record.Timestamp,
		EventRecord: *record,
	})
	if err != nil {
		return errors.NewPersistenceError("marshal event", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return errors.NewPersistenceError("put event", err)
	}
	return nil
}

// GetEvent retrieves a single event by ID
func (s *Store) GetEvent(ctx context.Context, id valueobjects.EventID) (*entities.Event, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: eventPKPrefix + id.String()},
			"SK": &types.AttributeValueMemberS{Value: metaSK},
		},
	})
	if err != nil {
		return nil, errors.NewPersistenceError("get event", err)
	}
	if result.Item == nil {
		return nil, errors.NewNotFoundError("event")
	}

	var item eventItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, errors.NewPersistenceError("unmarshal event", err)
	}
	return item.ToEvent()
}

// GetEvents retrieves events matching the filters, newest first.
// Actor, type and time bounds push down as a filter expression; the
// emotion and salience filters apply after unmarshaling.
func (s *Store) GetEvents(ctx context.Context, filters ports.EventFilters) ([]*entities.Event, error) {
	cond := expression.Name("PK").BeginsWith(eventPKPrefix)
	if filters.Actor != "" {
		cond = cond.And(expression.Name("actor").Equal(expression.Value(filters.Actor)))
	}
	if filters.EventType != "" {
		cond = cond.And(expression.Name("event_type").Equal(expression.Value(filters.EventType)))
	}
	if !filters.Since.IsZero() {
		cond = cond.And(expression.Name("timestamp").GreaterThanEqual(
			expression.Value(filters.Since.UTC().Format(schema.TimeKeyFormat))))
	}
	if !filters.Until.IsZero() {
		cond = cond.And(expression.Name("timestamp").LessThanEqual(
			expression.Value(filters.Until.UTC().Format(schema.TimeKeyFormat))))
	}

	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return nil, errors.NewPersistenceError("build filter expression", err)
	}

	records, err := s.scanEvents(ctx, expr)
	if err != nil {
		return nil, err
	}

	events := make([]*entities.Event, 0, len(records))
	for _, record := range records {
		event, err := record.ToEvent()
		if err != nil {
			s.logger.Warn("skipping corrupt item", zap.String("event_id", record.ID), zap.Error(err))
			continue
		}
		if filters.Emotion != "" && string(event.Emotion().PrimaryEmotion) != filters.Emotion {
			continue
		}
		if filters.MinSalience > 0 && event.Salience().Score < filters.MinSalience {
			continue
		}
		events = append(events, event)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp().After(events[j].Timestamp())
	})
	if filters.Limit > 0 && len(events) > filters.Limit {
		events = events[:filters.Limit]
	}
	return events, nil
}

// SearchByContent finds events containing the query text.
// DynamoDB contains() is case-sensitive, so matching happens client-side.
func (s *Store) SearchByContent(ctx context.Context, query string, limit int) ([]*entities.Event, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	all, err := s.GetEvents(ctx, ports.EventFilters{})
	if err != nil {
		return nil, err
	}

	matches := make([]*entities.Event, 0)
	for _, event := range all {
		if strings.Contains(strings.ToLower(event.Content()), needle) {
			matches = append(matches, event)
			if limit > 0 && len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}

// GetEventsForDate queries the date index for one UTC calendar day
func (s *Store) GetEventsForDate(ctx context.Context, date time.Time) ([]*entities.Event, error) {
	dateKey := "DATE#" + date.UTC().Format(schema.DateKeyFormat)

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(s.dateIndex),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: dateKey},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var events []*entities.Event
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, errors.NewPersistenceError("query events by date", err)
		}
		for _, raw := range result.Items {
			var item eventItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, errors.NewPersistenceError("unmarshal event", err)
			}
			event, err := item.ToEvent()
			if err != nil {
				s.logger.Warn("skipping corrupt item", zap.String("event_id", item.ID), zap.Error(err))
				continue
			}
			events = append(events, event)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return events, nil
}

// GetRecentEvents retrieves up to limit events from the last N days
func (s *Store) GetRecentEvents(ctx context.Context, days int, limit int) ([]*entities.Event, error) {
	return s.GetEvents(ctx, ports.EventFilters{
		Since: time.Now().UTC().AddDate(0, 0, -days),
		Limit: limit,
	})
}

// StoreReflection persists a reflection keyed by type and date
func (s *Store) StoreReflection(ctx context.Context, reflection *entities.Reflection) error {
	record := schema.FromReflection(reflection)
	item, err := attributevalue.MarshalMap(reflectionItem{
		PK:               reflectionPK(record.Type, record.Date),
		SK:               metaSK,
		ReflectionRecord: *record,
	})
	if err != nil {
		return errors.NewPersistenceError("marshal reflection", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return errors.NewPersistenceError("put reflection", err)
	}
	return nil
}

// GetReflection retrieves the reflection for a type and date
func (s *Store) GetReflection(ctx context.Context, kind entities.ReflectionType, date time.Time) (*entities.Reflection, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: reflectionPK(string(kind), date.UTC().Format(schema.DateKeyFormat))},
			"SK": &types.AttributeValueMemberS{Value: metaSK},
		},
	})
	if err != nil {
		return nil, errors.NewPersistenceError("get reflection", err)
	}
	if result.Item == nil {
		return nil, errors.NewNotFoundError("reflection")
	}

	var item reflectionItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, errors.NewPersistenceError("unmarshal reflection", err)
	}
	return item.ToReflection()
}

// CleanupOlderThan removes events strictly older than the cutoff
func (s *Store) CleanupOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	cond := expression.Name("PK").BeginsWith(eventPKPrefix).
		And(expression.Name("timestamp").LessThan(
			expression.Value(cutoff.UTC().Format(schema.TimeKeyFormat))))
	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return 0, errors.NewPersistenceError("build cleanup expression", err)
	}

	records, err := s.scanEvents(ctx, expr)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	writes := make([]types.WriteRequest, 0, len(records))
	for _, record := range records {
		writes = append(writes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: eventPKPrefix + record.ID},
					"SK": &types.AttributeValueMemberS{Value: metaSK},
				},
			},
		})
	}
	if err := s.batchWrite(ctx, writes); err != nil {
		return 0, err
	}

	s.logger.Info("retention cleanup removed events",
		zap.Int("count", len(records)),
		zap.Time("cutoff", cutoff),
	)
	return len(records), nil
}

// Backup writes a JSON snapshot of all items to w
func (s *Store) Backup(ctx context.Context, w io.Writer) error {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("PK").BeginsWith(eventPKPrefix)).
		Build()
	if err != nil {
		return errors.NewPersistenceError("build backup expression", err)
	}
	events, err := s.scanEvents(ctx, expr)
	if err != nil {
		return err
	}

	reflections, err := s.scanReflections(ctx)
	if err != nil {
		return err
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp < events[j].Timestamp })
	sort.Slice(reflections, func(i, j int) bool { return reflections[i].Date < reflections[j].Date })

	snap := schema.Snapshot{
		Version:     schema.CurrentSnapshotVersion,
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		Events:      events,
		Reflections: reflections,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return errors.NewPersistenceError("backup", err)
	}
	return nil
}

// Restore loads a JSON snapshot into the table. Existing items with the
// same keys are overwritten; others are left in place.
func (s *Store) Restore(ctx context.Context, r io.Reader) error {
	var snap schema.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return errors.NewPersistenceError("restore", err)
	}
	if err := schema.UpgradeSnapshot(&snap); err != nil {
		return errors.NewValidationError(err.Error())
	}

	writes := make([]types.WriteRequest, 0, len(snap.Events)+len(snap.Reflections))
	for _, record := range snap.Events {
		item, err := attributevalue.MarshalMap(eventItem{
			PK:          eventPKPrefix + record.ID,
			SK:          metaSK,
			GSI1PK:      "DATE#" + record.Timestamp[:len(schema.DateKeyFormat)],
			GSI1SK:      "TS#" + record.Timestamp,
			EventRecord: *record,
		})
		if err != nil {
			return errors.NewPersistenceError("marshal event", err)
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	for _, record := range snap.Reflections {
		item, err := attributevalue.MarshalMap(reflectionItem{
			PK:               reflectionPK(record.Type, record.Date),
			SK:               metaSK,
			ReflectionRecord: *record,
		})
		if err != nil {
			return errors.NewPersistenceError("marshal reflection", err)
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	return s.batchWrite(ctx, writes)
}

// Stats reports store-level counters
func (s *Store) Stats(ctx context.Context) (ports.StoreStats, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("PK").BeginsWith(eventPKPrefix)).
		Build()
	if err != nil {
		return ports.StoreStats{}, errors.NewPersistenceError("build stats expression", err)
	}
	events, err := s.scanEvents(ctx, expr)
	if err != nil {
		return ports.StoreStats{}, err
	}
	reflections, err := s.scanReflections(ctx)
	if err != nil {
		return ports.StoreStats{}, err
	}

	stats := ports.StoreStats{
		EventCount:      len(events),
		ReflectionCount: len(reflections),
	}
	for _, record := range events {
		ts, err := time.Parse(time.RFC3339Nano, record.Timestamp)
		if err != nil {
			continue
		}
		if stats.OldestEvent.IsZero() || ts.Before(stats.OldestEvent) {
			stats.OldestEvent = ts
		}
		if ts.After(stats.NewestEvent) {
			stats.NewestEvent = ts
		}
	}
	return stats, nil
}

// scanEvents runs a filtered scan and unmarshals event records,
// following pagination to the end
func (s *Store) scanEvents(ctx context.Context, expr expression.Expression) ([]*schema.EventRecord, error) {
	input := &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var records []*schema.EventRecord
	for {
		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, errors.NewPersistenceError("scan events", err)
		}
		for _, raw := range result.Items {
			var item eventItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, errors.NewPersistenceError("unmarshal event", err)
			}
			record := item.EventRecord
			records = append(records, &record)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return records, nil
}

func (s *Store) scanReflections(ctx context.Context) ([]*schema.ReflectionRecord, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("PK").BeginsWith(reflectionPKPrefix)).
		Build()
	if err != nil {
		return nil, errors.NewPersistenceError("build reflection expression", err)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var records []*schema.ReflectionRecord
	for {
		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, errors.NewPersistenceError("scan reflections", err)
		}
		for _, raw := range result.Items {
			var item reflectionItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, errors.NewPersistenceError("unmarshal reflection", err)
			}
			record := item.ReflectionRecord
			records = append(records, &record)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return records, nil
}

// batchWrite flushes write requests in chunks of the DynamoDB limit
func (s *Store) batchWrite(ctx context.Context, writes []types.WriteRequest) error {
	for i := 0; i < len(writes); i += batchWriteLimit {
		end := i + batchWriteLimit
		if end > len(writes) {
			end = len(writes)
		}
		result, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.tableName: writes[i:end],
			},
		})
		if err != nil {
			return errors.NewPersistenceError("batch write", err)
		}
		if len(result.UnprocessedItems) > 0 {
			return errors.NewPersistenceError("batch write",
				fmt.Errorf("%d items unprocessed", len(result.UnprocessedItems[s.tableName])))
		}
	}
	return nil
}

func reflectionPK(kind, date string) string {
	return reflectionPKPrefix + kind + "#" + date
}
