package market

// priceResponse is the payload of GET /api/v1/price.
type priceResponse struct {
	Price int64 `json:"price"` // current unit price, integer currency
}

// holdingsResponse is the payload of GET /api/v1/holdings.
type holdingsResponse struct {
	Units int64 `json:"units"` // units currently owned
}

// balanceResponse is the payload of GET /api/v1/balance.
type balanceResponse struct {
	Balance int64 `json:"balance"` // spendable balance, integer currency
}

// orderRequest is the body of POST /api/v1/orders/{buy,sell}.
type orderRequest struct {
	Quantity      int64  `json:"quantity"`
	ClientOrderID string `json:"client_order_id"` // caller-generated, for server-side dedup
}

// OrderAck is the remote confirmation of a submitted order.
type OrderAck struct {
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	Quantity      int64  `json:"quantity"`
}
