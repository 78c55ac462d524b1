package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseOrderNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    OrderNumber
		wantErr bool
	}{
		{in: "1042", want: 1042},
		{in: "#1042", want: 1042},
		{in: " #7 ", want: 7},
		{in: "", wantErr: true},
		{in: "#", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "4294967296", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrderNumber(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestOrderNumberFormats(t *testing.T) {
	n := OrderNumber(1042)
	if n.String() != "#1042" {
		t.Fatalf("unexpected string %q", n.String())
	}
	data, err := json.Marshal(struct {
		N OrderNumber `json:"n"`
	}{n})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"n":1042}` {
		t.Fatalf("unexpected json %s", data)
	}
	for _, in := range []string{`1042`, `"1042"`, `"#1042"`} {
		var got OrderNumber
		if err := json.Unmarshal([]byte(in), &got); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if got != n {
			t.Fatalf("%s: expected %d, got %d", in, n, got)
		}
	}
}

func TestGetOrder(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Shopify-Access-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotQuery, _ = req.Variables["query"].(string)
		w.Write([]byte(`{"data":{"orders":{"nodes":[{"lineItems":{"nodes":[
			{"sku":"SUMMON-SINGLE","quantity":3},
			{"sku":null,"quantity":1},
			{"sku":"SUMMON-FULL","quantity":1}
		]}}]}}}`))
	}))
	defer srv.Close()

	c := NewClient("shop", "secret").WithEndpoint(srv.URL)
	order, err := c.GetOrder(context.Background(), 1042)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if gotQuery != "name=#1042" {
		t.Fatalf("unexpected search %q", gotQuery)
	}
	if order.Number != 1042 || len(order.LineItems) != 2 {
		t.Fatalf("unexpected order %+v", order)
	}
	if order.LineItems[0].SKU != "SUMMON-SINGLE" || order.LineItems[0].Quantity != 3 {
		t.Fatalf("unexpected first item %+v", order.LineItems[0])
	}
}

func TestGetOrderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{
			name:   "not found",
			status: http.StatusOK,
			body:   `{"data":{"orders":{"nodes":[]}}}`,
			check:  func(err error) bool { return errors.Is(err, ErrOrderNotFound) },
		},
		{
			name:   "graphql errors",
			status: http.StatusOK,
			body:   `{"errors":[{"message":"Throttled"}]}`,
			check: func(err error) bool {
				var gqlErr *GraphQLError
				return errors.As(err, &gqlErr) && gqlErr.Messages[0] == "Throttled"
			},
		},
		{
			name:   "bad status",
			status: http.StatusBadGateway,
			body:   ``,
			check:  func(err error) bool { return err != nil },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("shop", "t").WithEndpoint(srv.URL).GetOrder(context.Background(), 1)
			if !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}
