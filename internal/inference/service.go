// Package inference carries volumes to a remote model and predictions back
// over gRPC. Payloads are encoded tensors wrapped in BytesValue messages.
package inference

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

const (
	// ServiceName is the fully qualified gRPC service name
	ServiceName = "clicksim.inference.v1.InferenceService"
	inferMethod = "/" + ServiceName + "/Infer"
)

// Model runs a forward pass
type Model interface {
	Infer(ctx context.Context, vol *models.Volume) (*models.PredictionMap, error)
}

// InferenceServiceServer is the server side of the inference service
type InferenceServiceServer interface {
	Infer(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InferenceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Infer", Handler: inferHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clicksim/inference/v1/inference.proto",
}

// RegisterInferenceServiceServer registers srv with a gRPC server
func RegisterInferenceServiceServer(r grpc.ServiceRegistrar, srv InferenceServiceServer) {
	r.RegisterService(&serviceDesc, srv)
}

func inferHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InferenceServiceServer).Infer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: inferMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InferenceServiceServer).Infer(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}
