package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ErrProductNotFound is returned when the catalog has no such product.
var ErrProductNotFound = errors.New("product not found")

// ProductCatalog resolves product data that orders snapshot at checkout.
type ProductCatalog interface {
	// FirstImage returns the first image URL of the product, or "" when it has none.
	FirstImage(ctx context.Context, productID string) (string, error)
}

// HTTPCatalog reads products from the product service's internal endpoint.
type HTTPCatalog struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPCatalog creates a catalog client for the product service at baseURL.
func NewHTTPCatalog(baseURL string) *HTTPCatalog {
	return &HTTPCatalog{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type productImages struct {
	Images []string `json:"images"`
}

func (c *HTTPCatalog) FirstImage(ctx context.Context, productID string) (string, error) {
	endpoint := fmt.Sprintf("%s/products/internal/%s", c.baseURL, url.PathEscape(productID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("product service returned %d", resp.StatusCode)
	}

	var p productImages
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return "", err
	}
	if len(p.Images) == 0 {
		return "", nil
	}
	return p.Images[0], nil
}

type itemGetter interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoCatalog reads products straight from the products table, keyed by
// `product_id`.
type DynamoCatalog struct {
	client itemGetter
	table  string
}

func NewDynamoCatalog(client *dynamodb.Client, table string) *DynamoCatalog {
	return &DynamoCatalog{client: client, table: table}
}

type ddbProductImages struct {
	ProductID string   `dynamodbav:"product_id"`
	Images    []string `dynamodbav:"images,omitempty"`
}

func (d *DynamoCatalog) FirstImage(ctx context.Context, productID string) (string, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"product_id": productID})
	if err != nil {
		return "", fmt.Errorf("marshal key: %w", err)
	}
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            &d.table,
		Key:                  key,
		ProjectionExpression: aws.String("product_id, images"),
	})
	if err != nil {
		return "", fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return "", ErrProductNotFound
	}

	var p ddbProductImages
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return "", fmt.Errorf("unmarshal item: %w", err)
	}
	if len(p.Images) == 0 {
		return "", nil
	}
	return p.Images[0], nil
}
