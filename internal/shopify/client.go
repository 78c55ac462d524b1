// Package shopify looks up store orders through the Admin GraphQL API.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gacha-summon/internal/catalog"
)

const apiVersion = "2024-01"

var ErrOrderNotFound = errors.New("order not found")

// GraphQLError carries the errors array of a failed GraphQL response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "shopify graphql: " + strings.Join(e.Messages, "; ")
}

type Order struct {
	Number    OrderNumber        `json:"orderNumber"`
	LineItems []catalog.LineItem `json:"lineItems"`
}

type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

func NewClient(shop, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   fmt.Sprintf("https://%s.myshopify.com/admin/api/%s/graphql.json", shop, apiVersion),
		token:      token,
	}
}

// WithEndpoint points the client at another GraphQL endpoint.
func (c *Client) WithEndpoint(url string) *Client {
	c.endpoint = url
	return c
}

const orderQuery = `query GetOrder($query: String!) {
  orders(first: 1, query: $query) {
    nodes {
      lineItems(first: 100) {
        nodes {
          sku
          quantity
        }
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type orderData struct {
	Orders struct {
		Nodes []struct {
			LineItems struct {
				Nodes []catalog.LineItem `json:"nodes"`
			} `json:"lineItems"`
		} `json:"nodes"`
	} `json:"orders"`
}

// GetOrder fetches the line items of the order with the given number.
func (c *Client) GetOrder(ctx context.Context, number OrderNumber) (Order, error) {
	var data orderData
	vars := map[string]any{"query": "name=" + number.String()}
	if err := c.post(ctx, orderQuery, vars, &data); err != nil {
		return Order{}, err
	}
	if len(data.Orders.Nodes) == 0 {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, number)
	}
	items := []catalog.LineItem{}
	for _, item := range data.Orders.Nodes[0].LineItems.Nodes {
		if item.SKU == "" {
			continue
		}
		items = append(items, item)
	}
	return Order{Number: number, LineItems: items}, nil
}

func (c *Client) post(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shopify returned status %d", resp.StatusCode)
	}

	var gr graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return fmt.Errorf("decode shopify response: %w", err)
	}
	if len(gr.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range gr.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	return json.Unmarshal(gr.Data, out)
}
