package dynamo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-api-magiclink/internal/domain"
)

// UserRepo reads the users table. PK: user_id, GSI email-index on email_lower,
// so email lookups ignore case like the other backends.
type UserRepo struct {
	client    API
	tableName string
}

func NewUserRepo(client API, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

// userItem is the stored shape of a user.
type userItem struct {
	domain.User
	EmailLower string `dynamodbav:"email_lower"`
}

// Put writes u with its normalized lookup key. Writers of the users table must
// go through here (or set email_lower themselves) for email lookups to find u.
func (r *UserRepo) Put(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(userItem{User: *u, EmailLower: normalizeEmail(u.Email)})
	if err != nil {
		return fmt.Errorf("marshal user: %v: %w", err, domain.ErrBackend)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put user: %v: %w", err, domain.ErrBackend)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldUserID, userID),
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %v: %w", err, domain.ErrBackend)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %v: %w", err, domain.ErrBackend)
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexEmail),
		KeyConditionExpression:    aws.String("#e = :email"),
		ExpressionAttributeNames:  map[string]string{"#e": fieldEmailKey},
		ExpressionAttributeValues: strValue(":email", normalizeEmail(email)),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query user by email: %v: %w", err, domain.ErrBackend)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %v: %w", err, domain.ErrBackend)
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(email)
}
