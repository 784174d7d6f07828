package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmca-notices/internal/domain"
)

// NoticeRepo provides typed DynamoDB operations for the notices table.
type NoticeRepo struct {
	client    API
	tableName string
}

func NewNoticeRepo(client API, tableName string) *NoticeRepo {
	return &NoticeRepo{client: client, tableName: tableName}
}

// Save inserts a new notice. An existing id is a conflict, never an overwrite.
func (r *NoticeRepo) Save(ctx context.Context, n *domain.Notice) error {
	item, err := marshalNotice(n)
	if err != nil {
		return err
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": fieldNoticeID},
	})
	return err
}

// marshalNotice writes both timestamps in the fixed-width layout so they sort
// lexically. Decoding needs no counterpart: time.RFC3339 parsing accepts the
// fraction.
func marshalNotice(n *domain.Notice) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notice: %w", err)
	}
	item[fieldCreatedAt] = &types.AttributeValueMemberS{Value: formatTime(n.CreatedAt)}
	item[fieldUpdatedAt] = &types.AttributeValueMemberS{Value: formatTime(n.UpdatedAt)}
	return item, nil
}

func (r *NoticeRepo) Get(ctx context.Context, noticeID string) (*domain.Notice, error) {
	return getOne[domain.Notice](ctx, r.client, r.tableName, fieldNoticeID, noticeID, "notice")
}

// ListByOwner queries the user_id-created_at GSI, newest first, following
// pagination until the index is exhausted.
func (r *NoticeRepo) ListByOwner(ctx context.Context, userID string, filter domain.NoticeFilter) ([]domain.Notice, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexUserCreatedAt),
		KeyConditionExpression: aws.String("#uid = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#uid": fieldUserID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if filter.ExcludeRemoved {
		in.FilterExpression = aws.String("#removed = :false")
		in.ExpressionAttributeNames["#removed"] = fieldContentRemoved
		in.ExpressionAttributeValues[":false"] = &types.AttributeValueMemberBOOL{Value: false}
	}

	notices := []domain.Notice{}
	for {
		out, err := r.client.Query(ctx, in)
		if err != nil {
			return nil, err
		}
		var page []domain.Notice
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		notices = append(notices, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return notices, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// SetContentRemoved updates only the content_removed flag. The write is
// conditioned on ownerID so a foreign notice is reported as not found.
func (r *NoticeRepo) SetContentRemoved(ctx context.Context, noticeID, ownerID string, removed bool) (*domain.Notice, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldContentRemoved: removed,
		fieldUpdatedAt:      formatTime(time.Now()),
	})
	if err != nil {
		return nil, err
	}
	ue.Names["#owner"] = fieldUserID
	ue.Values[":owner"] = &types.AttributeValueMemberS{Value: ownerID}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldNoticeID, noticeID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#owner = :owner"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, fmt.Errorf("notice not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	var n domain.Notice
	if err := attributevalue.UnmarshalMap(out.Attributes, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
