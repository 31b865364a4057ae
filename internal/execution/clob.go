// Package execution places the two legs of a hedged position on their
// venues. Legs are attempted sequentially but independently; a failure on
// one never blocks the attempt on the other.
package execution

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/internal/signing"
	"github.com/crossvenue/prediction-arb/pkg/types"
)

const (
	zeroAddress = "0x0000000000000000000000000000000000000000"

	polygonChainID = 137

	// CLOB amounts are 6-decimal fixed point.
	rawAmountScale = 1_000_000
)

// CLOBClient submits signed orders to the Polymarket CLOB.
type CLOBClient struct {
	baseURL       string
	signer        *signing.Signer
	creds         signing.L2Creds
	proxyAddress  string
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder
	httpClient    *http.Client
	logger        *zap.Logger
}

// CLOBConfig holds CLOB client configuration.
type CLOBConfig struct {
	BaseURL       string
	Signer        *signing.Signer
	Creds         signing.L2Creds
	ProxyAddress  string
	SignatureType int
	Logger        *zap.Logger
}

// NewCLOBClient creates a Polymarket CLOB order client.
func NewCLOBClient(cfg *CLOBConfig) *CLOBClient {
	orderBuilder := builder.NewExchangeOrderBuilderImpl(big.NewInt(polygonChainID), nil)

	return &CLOBClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		signer:        cfg.Signer,
		creds:         cfg.Creds,
		proxyAddress:  cfg.ProxyAddress,
		signatureType: model.SignatureType(cfg.SignatureType),
		orderBuilder:  orderBuilder,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        cfg.Logger,
	}
}

// Ready reports whether both the L1 signer and L2 credentials are present.
func (c *CLOBClient) Ready() bool {
	return c.signer != nil && c.creds.Valid()
}

// signedOrderJSON is the wire shape the CLOB expects. Salt and signatureType
// are integers; every other numeric field is a string.
type signedOrderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

type orderResponse struct {
	OrderID string `json:"orderID"`
	Status  string `json:"status"`
	Success bool   `json:"success"`
	Error   string `json:"errorMsg"`
}

// PlaceOrder builds, signs and submits a BUY order for the given outcome
// token, spending sizeUSD at the quoted price. Returns the venue order id.
func (c *CLOBClient) PlaceOrder(ctx context.Context, tokenID string, price, sizeUSD float64) (string, error) {
	if !c.Ready() {
		return "", types.ErrCredentialsUnavailable
	}
	if price <= 0 {
		return "", fmt.Errorf("invalid price %f", price)
	}

	maker := c.signer.Address().Hex()
	if c.proxyAddress != "" {
		maker = c.proxyAddress
	}

	orderData := &model.OrderData{
		Maker:         maker,
		Taker:         zeroAddress,
		TokenId:       tokenID,
		MakerAmount:   usdToRawAmount(sizeUSD),
		TakerAmount:   usdToRawAmount(sizeUSD / price),
		Side:          model.BUY,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        c.signer.Address().Hex(),
		Expiration:    "0",
		SignatureType: c.signatureType,
	}

	signedOrder, err := c.orderBuilder.BuildSignedOrder(c.signer.PrivateKey(), orderData, model.CTFExchange)
	if err != nil {
		return "", &types.SigningError{Venue: types.PlatformPolymarket, Op: "build-order", Err: err}
	}

	return c.submitOrder(ctx, signedOrder)
}

func (c *CLOBClient) submitOrder(ctx context.Context, order *model.SignedOrder) (string, error) {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	jsonOrder := signedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}

	// "owner" is the API key, not the maker address.
	orderRequest := map[string]interface{}{
		"order":     jsonOrder,
		"owner":     c.creds.APIKey,
		"orderType": "GTC",
	}

	reqBody, err := json.Marshal(orderRequest)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	const requestPath = "/order"
	headers, err := c.creds.L2Headers(
		c.signer.Address().Hex(),
		http.MethodPost,
		requestPath,
		string(reqBody),
		time.Now().Unix(),
	)
	if err != nil {
		return "", &types.SigningError{Venue: types.PlatformPolymarket, Op: "l2-headers", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+requestPath, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrVenueUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &types.VenueError{
			Venue:      types.PlatformPolymarket,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var orderResp orderResponse
	err = json.Unmarshal(body, &orderResp)
	if err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if orderResp.Error != "" {
		return "", fmt.Errorf("order rejected: %s", orderResp.Error)
	}

	c.logger.Info("clob-order-placed",
		zap.String("order-id", orderResp.OrderID),
		zap.String("status", orderResp.Status))

	return orderResp.OrderID, nil
}

// DeriveAPICreds exchanges an L1 wallet signature for L2 API credentials.
// The same wallet always derives the same credentials.
func (c *CLOBClient) DeriveAPICreds(ctx context.Context) (signing.L2Creds, error) {
	if c.signer == nil {
		return signing.L2Creds{}, types.ErrCredentialsUnavailable
	}

	timestamp := time.Now().Unix()
	const nonce = 0

	signature, err := c.signer.SignClobAuth(timestamp, nonce)
	if err != nil {
		return signing.L2Creds{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/derive-api-key", nil)
	if err != nil {
		return signing.L2Creds{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", c.signer.Address().Hex())
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", fmt.Sprintf("%d", timestamp))
	req.Header.Set("POLY_NONCE", fmt.Sprintf("%d", nonce))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return signing.L2Creds{}, fmt.Errorf("%w: %v", types.ErrVenueUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return signing.L2Creds{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return signing.L2Creds{}, &types.VenueError{
			Venue:      types.PlatformPolymarket,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var creds struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	err = json.Unmarshal(body, &creds)
	if err != nil {
		return signing.L2Creds{}, fmt.Errorf("parse response: %w", err)
	}

	return signing.L2Creds{
		APIKey:     creds.APIKey,
		Secret:     creds.Secret,
		Passphrase: creds.Passphrase,
	}, nil
}

func usdToRawAmount(usd float64) string {
	return fmt.Sprintf("%d", int64(usd*rawAmountScale))
}
