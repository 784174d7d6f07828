package dynamo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmca-notices/internal/domain"
	"gopkg.in/yaml.v3"
)

type providerSeed struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// SeedProviders inserts the providers listed in a YAML document such as
//
//	- id: "42"
//	  name: Acme Cloud
//	  email: abuse@acme.example
//
// Rows that already exist are left untouched. It returns how many were added.
func SeedProviders(ctx context.Context, client API, tableName string, r io.Reader) (int, error) {
	var seeds []providerSeed
	if err := yaml.NewDecoder(r).Decode(&seeds); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("decode provider seed: %w", err)
	}

	added := 0
	for i, s := range seeds {
		if s.ID == "" || s.Email == "" {
			return added, fmt.Errorf("provider seed entry %d: id and email are required", i)
		}
		item, err := attributevalue.MarshalMap(domain.Provider{ProviderID: s.ID, Name: s.Name, Email: s.Email})
		if err != nil {
			return added, err
		}
		_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                aws.String(tableName),
			Item:                     item,
			ConditionExpression:      aws.String("attribute_not_exists(#id)"),
			ExpressionAttributeNames: map[string]string{"#id": fieldProviderID},
		})
		var exists *types.ConditionalCheckFailedException
		if errors.As(err, &exists) {
			slog.Debug("provider already present", "provider_id", s.ID)
			continue
		}
		if err != nil {
			return added, fmt.Errorf("seed provider %s: %w", s.ID, err)
		}
		added++
	}
	return added, nil
}
