package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/labstack/gommon/log"
)

const HeaderConnectionID = "X-Connection-Id"

var (
	ErrConnectionGone = errors.New("connection is gone")
	ErrSlowConsumer   = errors.New("connection send buffer is full")

	errNilConn = errors.New("nil connection")
)

// GatewayClient pushes frames to a connection handle, whichever transport owns it.
type GatewayClient interface {
	PostToConnection(ctx context.Context, connID string, data interface{}) error
	DeleteConnection(ctx context.Context, connID string) error
}

// AWSGatewayClient serves connections terminated by an API Gateway websocket API.
type AWSGatewayClient struct {
	client *apigatewaymanagementapi.Client
}

func NewAWSGatewayClient(ctx context.Context, endpoint, region string) (*AWSGatewayClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	client := apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &AWSGatewayClient{client: client}, nil
}

func (g *AWSGatewayClient) PostToConnection(ctx context.Context, connID string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = g.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connID),
		Data:         payload,
	})
	return mapGatewayError(connID, err)
}

func (g *AWSGatewayClient) DeleteConnection(ctx context.Context, connID string) error {
	_, err := g.client.DeleteConnection(ctx, &apigatewaymanagementapi.DeleteConnectionInput{
		ConnectionId: aws.String(connID),
	})
	return mapGatewayError(connID, err)
}

func mapGatewayError(connID string, err error) error {
	if err == nil {
		return nil
	}

	var gone *types.GoneException
	if errors.As(err, &gone) {
		// Usually means user disconnected already
		return ErrConnectionGone
	}
	log.Warnf("api gateway call for connection %s failed: %v", connID, err)
	return err
}
