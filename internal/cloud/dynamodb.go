package cloud

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/predictmaint/predictmaint/internal/domain"
)

// Table layout: every prediction lives in the "prediction" partition sorted
// by id, so a partition query returns rows in insertion order. The
// machineId-id-index GSI serves per-machine listings. Ids come from an
// atomic counter item in the "counter" partition.
const (
	predictionPartition = "prediction"
	counterPartition    = "counter"
	machineIndex        = "machineId-id-index"
)

type dynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoDBStore keeps predictions in a single DynamoDB table.
type DynamoDBStore struct {
	svc   dynamoAPI
	table string
	now   func() time.Time
}

func NewDynamoDBStore(cfg aws.Config, table string) *DynamoDBStore {
	return &DynamoDBStore{svc: dynamodb.NewFromConfig(cfg), table: table, now: time.Now}
}

type predictionItem struct {
	PK           string   `dynamodbav:"pk"`
	ID           int64    `dynamodbav:"id"`
	MachineID    string   `dynamodbav:"machineId"`
	Temperature  *float64 `dynamodbav:"temperature,omitempty"`
	Humidity     *float64 `dynamodbav:"humidity,omitempty"`
	Prediction   float64  `dynamodbav:"prediction"`
	ModelVersion string   `dynamodbav:"modelVersion"`
	Timestamp    string   `dynamodbav:"timestamp"`
}

func toItem(p *domain.Prediction) predictionItem {
	return predictionItem{
		PK:           predictionPartition,
		ID:           p.ID,
		MachineID:    p.MachineID,
		Temperature:  p.Features.Temperature,
		Humidity:     p.Features.Humidity,
		Prediction:   p.Prediction,
		ModelVersion: p.ModelVersion,
		Timestamp:    p.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func (it predictionItem) prediction() (domain.Prediction, error) {
	ts, err := time.Parse(time.RFC3339Nano, it.Timestamp)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("cloud: prediction %d timestamp: %w", it.ID, err)
	}
	return domain.Prediction{
		ID:           it.ID,
		MachineID:    it.MachineID,
		Features:     domain.Features{Temperature: it.Temperature, Humidity: it.Humidity},
		Prediction:   it.Prediction,
		ModelVersion: it.ModelVersion,
		Timestamp:    ts,
	}, nil
}

func (s *DynamoDBStore) nextID(ctx context.Context) (int64, error) {
	out, err := s.svc.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: counterPartition},
			"id": &types.AttributeValueMemberN{Value: "0"},
		},
		UpdateExpression:          aws.String("ADD seq :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("cloud: allocate prediction id: %w", err)
	}
	seq, ok := out.Attributes["seq"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("cloud: allocate prediction id: counter missing")
	}
	return strconv.ParseInt(seq.Value, 10, 64)
}

func (s *DynamoDBStore) InsertPrediction(ctx context.Context, p *domain.Prediction) error {
	id, err := s.nextID(ctx)
	if err != nil {
		return err
	}
	p.ID = id
	if p.Timestamp.IsZero() {
		p.Timestamp = s.now().UTC()
	}

	item, err := attributevalue.MarshalMap(toItem(p))
	if err != nil {
		return fmt.Errorf("cloud: marshal prediction: %w", err)
	}
	_, err = s.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("cloud: put prediction: %w", err)
	}
	return nil
}

func (s *DynamoDBStore) ListPredictions(ctx context.Context) ([]domain.Prediction, error) {
	return s.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: predictionPartition},
		},
		ScanIndexForward: aws.Bool(true),
	})
}

func (s *DynamoDBStore) ListByMachine(ctx context.Context, machineID string) ([]domain.Prediction, error) {
	return s.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(machineIndex),
		KeyConditionExpression: aws.String("machineId = :mid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":mid": &types.AttributeValueMemberS{Value: machineID},
		},
		ScanIndexForward: aws.Bool(true),
	})
}

// query follows LastEvaluatedKey until every page is read.
func (s *DynamoDBStore) query(ctx context.Context, in *dynamodb.QueryInput) ([]domain.Prediction, error) {
	var out []domain.Prediction
	for {
		res, err := s.svc.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("cloud: query predictions: %w", err)
		}

		var items []predictionItem
		if err := attributevalue.UnmarshalListOfMaps(res.Items, &items); err != nil {
			return nil, fmt.Errorf("cloud: unmarshal predictions: %w", err)
		}
		for _, it := range items {
			p, err := it.prediction()
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}

		if len(res.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = res.LastEvaluatedKey
	}
}

func (s *DynamoDBStore) Ping(ctx context.Context) error {
	_, err := s.svc.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err != nil {
		return fmt.Errorf("cloud: describe table %s: %w", s.table, err)
	}
	return nil
}
