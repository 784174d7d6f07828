package dynamo

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/dmca-notices/internal/domain"
)

// ProviderRepo reads the providers table. The table is small reference data,
// so listing is a full scan.
type ProviderRepo struct {
	client    API
	tableName string
}

func NewProviderRepo(client API, tableName string) *ProviderRepo {
	return &ProviderRepo{client: client, tableName: tableName}
}

// List returns every provider ordered by name, then id.
func (r *ProviderRepo) List(ctx context.Context) ([]domain.Provider, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(r.tableName)}
	providers := []domain.Provider{}
	for {
		out, err := r.client.Scan(ctx, in)
		if err != nil {
			return nil, err
		}
		var page []domain.Provider
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		providers = append(providers, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
	sort.Slice(providers, func(i, j int) bool {
		if providers[i].Name != providers[j].Name {
			return providers[i].Name < providers[j].Name
		}
		return providers[i].ProviderID < providers[j].ProviderID
	})
	return providers, nil
}

func (r *ProviderRepo) Get(ctx context.Context, providerID string) (*domain.Provider, error) {
	return getOne[domain.Provider](ctx, r.client, r.tableName, fieldProviderID, providerID, "provider")
}
