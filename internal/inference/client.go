package inference

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GoSim-25-26J-441/clicksim/internal/policy"
	"github.com/GoSim-25-26J-441/clicksim/pkg/config"
	"github.com/GoSim-25-26J-441/clicksim/pkg/logger"
	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

const (
	retryBaseDelay = 100 * time.Millisecond
	retryMaxDelay  = 2 * time.Second
)

// Client calls a remote inference service
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	retry   policy.RetryPolicy
	logger  *slog.Logger
}

// NewClient connects to the inference service at cfg.Addr. Extra dial
// options are appended to the insecure transport default.
func NewClient(cfg *config.InferenceClient, opts ...grpc.DialOption) (*Client, error) {
	timeout, err := cfg.GetTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid inference timeout %q: %w", cfg.Timeout, err)
	}
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(cfg.Addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", cfg.Addr, err)
	}
	return &Client{
		conn:    conn,
		timeout: timeout,
		retry:   policy.NewRetryPolicy(cfg.MaxRetries, policy.ExponentialBackoff(retryBaseDelay, retryMaxDelay, 2), isTransient),
		logger:  logger.Default,
	}, nil
}

// SetLogger sets the logger
func (c *Client) SetLogger(l *slog.Logger) {
	c.logger = l
}

// Close shuts down the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Infer sends vol to the remote model. Unavailable servers are retried per
// the retry policy.
func (c *Client) Infer(ctx context.Context, vol *models.Volume) (*models.PredictionMap, error) {
	payload, err := EncodeVolume(vol)
	if err != nil {
		return nil, err
	}
	req := wrapperspb.Bytes(payload)
	c.logger.Debug("inference request", "bytes", proto.Size(req), "channels", vol.NumChannels())

	for attempt := 0; ; attempt++ {
		resp, err := c.invoke(ctx, req)
		if err == nil {
			pred, err := DecodePrediction(resp.GetValue())
			if err != nil {
				return nil, fmt.Errorf("infer rpc: %w", err)
			}
			return pred, nil
		}
		if !c.retry.ShouldRetry(attempt, err) {
			return nil, fmt.Errorf("infer rpc: %w", err)
		}
		wait := c.retry.Backoff(attempt)
		c.logger.Warn("inference unavailable, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("infer rpc: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
}

func (c *Client) invoke(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, inferMethod, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func isTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted:
		return true
	}
	return false
}
