package clients

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
)

// WebSocketNotifier implements Notifier over the API Gateway WebSocket
// management API.
type WebSocketNotifier struct {
	client *apigatewaymanagementapi.Client
}

// NewWebSocketNotifier creates a Notifier posting to the given connection
// management endpoint, e.g.
// https://abc123.execute-api.us-east-1.amazonaws.com/prod.
func NewWebSocketNotifier(cfg aws.Config, endpoint string) *WebSocketNotifier {
	return &WebSocketNotifier{
		client: apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		}),
	}
}

func (n *WebSocketNotifier) Push(ctx context.Context, connectionID, message string) error {
	_, err := n.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         []byte(message),
	})
	if err != nil {
		return fmt.Errorf("failed to post to connection %s: %w", connectionID, err)
	}

	return nil
}
