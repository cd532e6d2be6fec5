package db

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/complaintflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	items      map[string]map[string]types.AttributeValue
	pageSize   int
	scanCalls  int
	describErr error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}, pageSize: 2}
}

func keyOf(key map[string]types.AttributeValue) string {
	return key["id"].(*types.AttributeValueMemberS).Value
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	id := keyOf(in.Item)
	if _, exists := f.items[id]; exists && aws.ToString(in.ConditionExpression) == "attribute_not_exists(id)" {
		return nil, conditionFailed()
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	id := keyOf(in.Key)
	item, exists := f.items[id]
	if !exists {
		return nil, conditionFailed()
	}

	updated := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		updated[k] = v
	}
	updated[in.ExpressionAttributeNames["#status"]] = in.ExpressionAttributeValues[":status"]
	if v, ok := in.ExpressionAttributeValues[":resolved_at"]; ok {
		updated["resolved_at"] = v
	} else {
		delete(updated, "resolved_at")
	}
	f.items[id] = updated
	return &dynamodb.UpdateItemOutput{Attributes: updated}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	id := keyOf(in.Key)
	item, exists := f.items[id]
	if !exists {
		return nil, conditionFailed()
	}
	delete(f.items, id)
	return &dynamodb.DeleteItemOutput{Attributes: item}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanCalls++
	ids := make([]string, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := keyOf(in.ExclusiveStartKey)
		start = sort.SearchStrings(ids, after) + 1
	}
	end := start + f.pageSize
	if end > len(ids) {
		end = len(ids)
	}

	out := &dynamodb.ScanOutput{}
	for _, id := range ids[start:end] {
		out.Items = append(out.Items, f.items[id])
	}
	if end < len(ids) {
		out.LastEvaluatedKey = idKey(ids[end-1])
	}
	return out, nil
}

func (f *fakeDynamo) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.describErr != nil {
		return nil, f.describErr
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func TestDynamoDBCreateGet(t *testing.T) {
	fake := newFakeDynamo()
	repo := NewDynamoDBRepository(fake, "")
	ctx := context.Background()
	c := complaintAt("c1", models.CategoryBilling, models.SentimentNegative, models.PriorityHigh, testNow)
	c.Polarity = -0.42

	require.NoError(t, repo.Create(ctx, c))
	assert.NotContains(t, fake.items["c1"], "resolved_at")

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, c.Category, got.Category)
	assert.Equal(t, c.Polarity, got.Polarity)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.ResolvedAt)

	assert.ErrorIs(t, repo.Create(ctx, c), ErrDuplicateID)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrComplaintNotFound)
}

func TestDynamoDBListScansAllPages(t *testing.T) {
	fake := newFakeDynamo()
	repo := NewDynamoDBRepository(fake, "Complaints")
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c", "d", "e"} {
		category := models.CategoryBilling
		if i%2 == 1 {
			category = models.CategoryDelivery
		}
		require.NoError(t, repo.Create(ctx, complaintAt(id, category, models.SentimentNeutral, models.PriorityLow, testNow.Add(time.Duration(i)*time.Minute))))
	}

	all, err := repo.List(ctx, models.ComplaintFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d", "c", "b", "a"}, ids(all))
	assert.Equal(t, 3, fake.scanCalls)

	billing, err := repo.List(ctx, models.ComplaintFilter{Category: models.CategoryBilling, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "c"}, ids(billing))
}

func TestDynamoDBUpdateStatus(t *testing.T) {
	fake := newFakeDynamo()
	repo := NewDynamoDBRepository(fake, "")
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, complaintAt("c1", models.CategoryAccount, models.SentimentNegative, models.PriorityMedium, testNow)))

	at := testNow.Add(90 * time.Minute)
	got, err := repo.UpdateStatus(ctx, "c1", models.StatusResolved, at)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, at.Equal(*got.ResolvedAt))

	got, err = repo.UpdateStatus(ctx, "c1", models.StatusOpen, at)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, got.Status)
	assert.Nil(t, got.ResolvedAt)

	_, err = repo.UpdateStatus(ctx, "missing", models.StatusOpen, at)
	assert.ErrorIs(t, err, ErrComplaintNotFound)

	_, err = repo.UpdateStatus(ctx, "c1", "done", at)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDynamoDBDeleteAndAnalytics(t *testing.T) {
	fake := newFakeDynamo()
	repo := NewDynamoDBRepository(fake, "")
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, complaintAt("c1", models.CategoryAccount, models.SentimentPositive, models.PriorityMedium, testNow)))
	require.NoError(t, repo.Create(ctx, complaintAt("c2", models.CategoryAccount, models.SentimentNegative, models.PriorityHigh, testNow)))

	deleted, err := repo.Delete(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", deleted.ID)

	_, err = repo.Delete(ctx, "c1")
	assert.ErrorIs(t, err, ErrComplaintNotFound)

	a, err := repo.Analytics(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, a.TotalComplaints)
	assert.Equal(t, 1.0, a.CSATScore)
}

func TestDynamoDBPing(t *testing.T) {
	fake := newFakeDynamo()
	repo := NewDynamoDBRepository(fake, "")
	assert.NoError(t, repo.Ping(context.Background()))

	fake.describErr = errors.New("ResourceNotFoundException")
	assert.Error(t, repo.Ping(context.Background()))
}
