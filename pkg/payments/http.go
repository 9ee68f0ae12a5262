package payments

import (
	"context"
	"fmt"
	"net/http"

	"stayledger/pkg/client"
	"stayledger/pkg/model"
)

// HTTPGateway defers transfers to a remote treasury service speaking the
// same JSON envelope as this service's own API.
type HTTPGateway struct {
	client *client.HttpClient
}

func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		client: client.NewHttpClient(baseURL),
	}
}

type transferRequest struct {
	From   model.AccountID `json:"from"`
	To     model.AccountID `json:"to"`
	Amount uint64          `json:"amount"`
}

type balanceResponse struct {
	Data struct {
		Account model.AccountID `json:"account"`
		Balance uint64          `json:"balance"`
	} `json:"data"`
}

func (g *HTTPGateway) Transfer(ctx context.Context, from, to model.AccountID, amount uint64) error {
	resp, err := g.client.Do(ctx, http.MethodPost, "/api/v1/transfers", transferRequest{
		From:   from,
		To:     to,
		Amount: amount,
	}, nil)
	if err != nil {
		return fmt.Errorf("treasury transfer request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("treasury rejected transfer: %s", client.GetErrorMessage(resp))
	}
	return nil
}

func (g *HTTPGateway) Balance(ctx context.Context, account model.AccountID) (uint64, error) {
	resp, err := g.client.Do(ctx, http.MethodGet, "/api/v1/accounts/"+string(account)+"/balance", nil, nil)
	if err != nil {
		return 0, fmt.Errorf("treasury balance request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("treasury rejected balance lookup: %s", client.GetErrorMessage(resp))
	}

	var body balanceResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return 0, fmt.Errorf("treasury balance response malformed: %w", err)
	}
	return body.Data.Balance, nil
}
