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
	"github.com/go-api-magiclink/internal/domain"
)

// codeItem is the stored shape of a verification code.
// PK: code. ExpiresAt is Unix seconds and doubles as the table's TTL attribute.
type codeItem struct {
	Code       string    `dynamodbav:"code"`
	ID         string    `dynamodbav:"id"`
	UserID     string    `dynamodbav:"user_id"`
	ExpiresAt  int64     `dynamodbav:"expires_at"`
	InsertedAt time.Time `dynamodbav:"inserted_at"`
}

func (c codeItem) toDomain() *domain.VerificationCode {
	return &domain.VerificationCode{
		ID:         c.ID,
		UserID:     c.UserID,
		Code:       c.Code,
		ExpiresAt:  time.Unix(c.ExpiresAt, 0).UTC(),
		InsertedAt: c.InsertedAt,
	}
}

// VerificationCodeRepo stores magic-link codes keyed by the code itself.
type VerificationCodeRepo struct {
	client    API
	tableName string
}

func NewVerificationCodeRepo(client API, tableName string) *VerificationCodeRepo {
	return &VerificationCodeRepo{client: client, tableName: tableName}
}

// Create puts v unless an item with the same code already exists.
func (r *VerificationCodeRepo) Create(ctx context.Context, v *domain.VerificationCode) error {
	item, err := attributevalue.MarshalMap(codeItem{
		Code:       v.Code,
		ID:         v.ID,
		UserID:     v.UserID,
		ExpiresAt:  v.ExpiresAt.Unix(),
		InsertedAt: v.InsertedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal verification code: %v: %w", err, domain.ErrBackend)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#c)"),
		ExpressionAttributeNames: map[string]string{
			"#c": fieldCode,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("verification code exists: %w", domain.ErrConflict)
		}
		return fmt.Errorf("put verification code: %v: %w", err, domain.ErrBackend)
	}
	return nil
}

// Redeem deletes the item for code and returns its previous attributes.
// DeleteItem is atomic per item, so concurrent callers see exactly one success.
func (r *VerificationCodeRepo) Redeem(ctx context.Context, code string) (*domain.VerificationCode, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          strKey(fieldCode, code),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, fmt.Errorf("delete verification code: %v: %w", err, domain.ErrBackend)
	}
	if len(out.Attributes) == 0 {
		return nil, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}
	var item codeItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("unmarshal verification code: %v: %w", err, domain.ErrBackend)
	}
	return item.toDomain(), nil
}

// DeleteByUser removes every outstanding code for userID via the user_id GSI,
// following LastEvaluatedKey across pages. GSI reads are eventually
// consistent, so a code written a moment earlier may be missed.
func (r *VerificationCodeRepo) DeleteByUser(ctx context.Context, userID string) error {
	pages := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexUserID),
		KeyConditionExpression:    aws.String("user_id = :uid"),
		ExpressionAttributeValues: strValue(":uid", userID),
	})
	for pages.HasMorePages() {
		out, err := pages.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("query codes by user: %v: %w", err, domain.ErrBackend)
		}
		for _, item := range out.Items {
			codeAttr, ok := item[fieldCode].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(r.tableName),
				Key:       strKey(fieldCode, codeAttr.Value),
			}); err != nil {
				return fmt.Errorf("delete code for user: %v: %w", err, domain.ErrBackend)
			}
		}
	}
	return nil
}
