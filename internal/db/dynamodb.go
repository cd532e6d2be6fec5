package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/complaintflow/internal/models"
)

const COMPLAINTS_TABLE_NAME = "Complaints"

type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoDBRepository stores one item per complaint keyed by id. Listing and
// analytics scan the table.
type DynamoDBRepository struct {
	client DynamoDBAPI
	table  string
}

func NewDynamoDBRepository(client DynamoDBAPI, table string) *DynamoDBRepository {
	if table == "" {
		table = COMPLAINTS_TABLE_NAME
	}
	return &DynamoDBRepository{client: client, table: table}
}

func (r *DynamoDBRepository) Create(ctx context.Context, c models.Complaint) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("[DynamoDB] failed to marshal complaint: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("[DynamoDB] create %s: %w", c.ID, ErrDuplicateID)
		}
		return fmt.Errorf("[DynamoDB] failed to put complaint: %w", err)
	}
	return nil
}

func (r *DynamoDBRepository) Get(ctx context.Context, id string) (models.Complaint, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       idKey(id),
	})
	if err != nil {
		return models.Complaint{}, fmt.Errorf("[DynamoDB] failed to get complaint: %w", err)
	}
	if len(out.Item) == 0 {
		return models.Complaint{}, fmt.Errorf("[DynamoDB] get %s: %w", id, ErrComplaintNotFound)
	}
	return unmarshalComplaint(out.Item)
}

func (r *DynamoDBRepository) List(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, error) {
	all, err := r.scanAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Complaint, 0, len(all))
	for _, c := range all {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	sortNewestFirst(out)
	if limit := f.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *DynamoDBRepository) UpdateStatus(ctx context.Context, id string, status models.Status, at time.Time) (models.Complaint, error) {
	if !validStatus(status) {
		return models.Complaint{}, fmt.Errorf("[DynamoDB] update %s to %q: %w", id, status, ErrInvalidStatus)
	}

	values := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: string(status)},
	}
	update := "SET #status = :status REMOVE resolved_at"
	if resolvedAt := resolvedAtFor(status, at); resolvedAt != nil {
		av, err := attributevalue.Marshal(*resolvedAt)
		if err != nil {
			return models.Complaint{}, fmt.Errorf("[DynamoDB] failed to marshal resolved_at: %w", err)
		}
		values[":resolved_at"] = av
		update = "SET #status = :status, resolved_at = :resolved_at"
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       idKey(id),
		UpdateExpression:          aws.String(update),
		ConditionExpression:       aws.String("attribute_exists(id)"),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailure(err) {
			return models.Complaint{}, fmt.Errorf("[DynamoDB] update %s: %w", id, ErrComplaintNotFound)
		}
		return models.Complaint{}, fmt.Errorf("[DynamoDB] failed to update complaint: %w", err)
	}
	return unmarshalComplaint(out.Attributes)
}

func (r *DynamoDBRepository) Delete(ctx context.Context, id string) (models.Complaint, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.table),
		Key:                 idKey(id),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		if isConditionFailure(err) {
			return models.Complaint{}, fmt.Errorf("[DynamoDB] delete %s: %w", id, ErrComplaintNotFound)
		}
		return models.Complaint{}, fmt.Errorf("[DynamoDB] failed to delete complaint: %w", err)
	}
	return unmarshalComplaint(out.Attributes)
}

func (r *DynamoDBRepository) Analytics(ctx context.Context, now time.Time) (*models.Analytics, error) {
	all, err := r.scanAll(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(all, now), nil
}

func (r *DynamoDBRepository) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.table),
	})
	return err
}

func (r *DynamoDBRepository) scanAll(ctx context.Context) ([]models.Complaint, error) {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.table),
	})

	var out []models.Complaint
	pages := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] failed to scan complaints: %w", err)
		}
		pages++

		var batch []models.Complaint
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("[DynamoDB] failed to unmarshal complaints: %w", err)
		}
		out = append(out, batch...)
	}

	slog.Debug("[DynamoDB] Scanned complaints",
		slog.Int("pages", pages),
		slog.Int("items", len(out)))
	return out, nil
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func unmarshalComplaint(item map[string]types.AttributeValue) (models.Complaint, error) {
	var c models.Complaint
	if err := attributevalue.UnmarshalMap(item, &c); err != nil {
		return models.Complaint{}, fmt.Errorf("[DynamoDB] failed to unmarshal complaint: %w", err)
	}
	return c, nil
}

func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
