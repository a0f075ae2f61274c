// Package quant talks to the quantized toxicity model served over gRPC.
//
// The service takes and returns google.protobuf.Struct messages:
//
//	Predict({"text": "..."}) -> {"score": 0.0-1.0}
package quant

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName   = "toxicity.v1.ToxicityClassifier"
	predictMethod = "/" + ServiceName + "/Predict"
)

// Config holds configuration for the gRPC client.
type Config struct {
	Address string        // gRPC server address, e.g., "localhost:50051"
	Timeout time.Duration // Per-request timeout
}

// DefaultConfig returns a default gRPC config.
func DefaultConfig(addr string) Config {
	return Config{
		Address: addr,
		Timeout: 10 * time.Second,
	}
}

// Client scores text with the quantized model.
type Client struct {
	config Config
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// NewClient creates a client. The connection is established lazily.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig(cfg.Address).Timeout
	}
	conn, err := grpc.NewClient(
		cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("quant: failed to dial %s: %w", cfg.Address, err)
	}
	return &Client{
		config: cfg,
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) Name() string {
	return "quantized"
}

// Score returns the model's toxicity score for text.
func (c *Client) Score(ctx context.Context, text string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := structpb.NewStruct(map[string]any{"text": text})
	if err != nil {
		return 0, fmt.Errorf("quant: build request: %w", err)
	}
	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, predictMethod, req, resp); err != nil {
		return 0, fmt.Errorf("quant: Predict failed: %w", err)
	}
	return scoreOf(resp)
}

func scoreOf(resp *structpb.Struct) (float64, error) {
	for _, key := range []string{"score", "toxicity"} {
		v, ok := resp.GetFields()[key]
		if !ok {
			continue
		}
		if n, ok := v.GetKind().(*structpb.Value_NumberValue); ok {
			return n.NumberValue, nil
		}
	}
	return 0, fmt.Errorf("quant: response has no numeric score: %v", resp.AsMap())
}

// Ping asks the standard gRPC health service about the classifier.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("quant: health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("quant: service is %s", resp.GetStatus())
	}
	return nil
}
