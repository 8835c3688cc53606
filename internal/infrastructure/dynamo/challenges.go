package dynamo

import (
	"context"
	"fmt"

	"github.com/aeronite/auth-api/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ChallengeRepo provides typed DynamoDB operations for the otp_challenges table.
// PK: challenge_id. GSI user_id-created_at-index orders a user's challenges by
// creation time (created_at is stored as RFC3339, which sorts lexicographically).
type ChallengeRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewChallengeRepo(client *dynamodb.Client, tableName string) *ChallengeRepo {
	return &ChallengeRepo{client: client, tableName: tableName}
}

// LatestByUser returns the most recently created challenge for the user,
// live or not. Cooldown checks care about created_at regardless of expiry.
func (r *ChallengeRepo) LatestByUser(ctx context.Context, userID string) (*domain.OTPChallenge, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-created_at-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("challenge not found: %w", domain.ErrNotFound)
	}
	var c domain.OTPChallenge
	if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ReplaceForUser deletes every existing challenge for the user and inserts the
// new one in a single TransactWriteItems call, so two concurrent issuances
// cannot leave two live rows behind.
func (r *ChallengeRepo) ReplaceForUser(ctx context.Context, userID string, c *domain.OTPChallenge) error {
	ids, err := r.idsByUser(ctx, userID)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}

	items := make([]types.TransactWriteItem, 0, len(ids)+1)
	for _, id := range ids {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       strKey("challenge_id", id),
			},
		})
	}
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(r.tableName),
			Item:      item,
		},
	})

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return err
}

// Delete removes a consumed challenge.
func (r *ChallengeRepo) Delete(ctx context.Context, challengeID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("challenge_id", challengeID),
	})
	return err
}

func (r *ChallengeRepo) idsByUser(ctx context.Context, userID string) ([]string, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-created_at-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ProjectionExpression: aws.String("challenge_id"),
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.Items))
	for _, item := range out.Items {
		if v, ok := item["challenge_id"].(*types.AttributeValueMemberS); ok {
			ids = append(ids, v.Value)
		}
	}
	return ids, nil
}
