package inference

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GoSim-25-26J-441/clicksim/pkg/logger"
)

// Server exposes a Model as the inference service
type Server struct {
	model  Model
	logger *slog.Logger
}

// NewServer creates a Server for model
func NewServer(model Model) *Server {
	return &Server{model: model, logger: logger.Default}
}

// SetLogger sets the logger
func (s *Server) SetLogger(l *slog.Logger) {
	s.logger = l
}

func (s *Server) Infer(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if req == nil || len(req.GetValue()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "volume is required")
	}
	vol, err := DecodeVolume(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	pred, err := s.model.Infer(ctx, vol)
	if err != nil {
		if _, ok := status.FromError(err); ok {
			return nil, err
		}
		if errors.Is(err, context.Canceled) {
			return nil, status.Error(codes.Canceled, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	out, err := EncodePrediction(pred)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	s.logger.Debug("inference served", "channels", vol.NumChannels(), "shape", vol.Shape().String())
	return wrapperspb.Bytes(out), nil
}
