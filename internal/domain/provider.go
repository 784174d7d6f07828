package domain

// Provider is a hosting service that receives takedown notices.
type Provider struct {
	ProviderID string `json:"id" dynamodbav:"provider_id"`
	Name       string `json:"name" dynamodbav:"name"`
	Email      string `json:"-" dynamodbav:"email"`
}

// ProviderOption is one selectable recipient on the create form.
type ProviderOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
