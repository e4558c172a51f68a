package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/accuracy"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/common"
	"github.com/rrithick/Handwritten-to-digital-texy-by-llama-OCR/internal/evaluation"
)

// ScoringServiceName is the fully qualified gRPC service name.
const ScoringServiceName = "ocr.v1.ScoringService"

// ScoringServer scores transcripts. Requests and responses are
// google.protobuf.Struct so no generated stubs are needed.
type ScoringServer interface {
	Score(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	EvaluateDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ScoringServiceDesc is registered like a generated service descriptor.
var ScoringServiceDesc = grpc.ServiceDesc{
	ServiceName: ScoringServiceName,
	HandlerType: (*ScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Score", Handler: scoreHandler},
		{MethodName: "EvaluateDocument", Handler: evaluateDocumentHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ocr/v1/scoring.proto",
}

func scoreHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServer).Score(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ScoringServiceName + "/Score"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScoringServer).Score(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func evaluateDocumentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServer).EvaluateDocument(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ScoringServiceName + "/EvaluateDocument"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScoringServer).EvaluateDocument(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type scoringService struct {
	evals  *evaluation.Service
	logger *slog.Logger
}

// NewScoringService returns the ScoringServer backed by the evaluation service.
// evals may be nil, in which case EvaluateDocument is unavailable.
func NewScoringService(evals *evaluation.Service, logger *slog.Logger) ScoringServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &scoringService{evals: evals, logger: logger}
}

func (s *scoringService) Score(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	predicted, err := stringField(req, "predicted", false)
	if err != nil {
		return nil, err
	}
	truth, err := stringField(req, "ground_truth", false)
	if err != nil {
		return nil, err
	}
	report, err := evaluation.Score(predicted, truth)
	if err != nil {
		return nil, grpcError(err)
	}
	return reportStruct(report, nil)
}

func (s *scoringService) EvaluateDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.evals == nil {
		return nil, common.FailedPreconditionError("document evaluation is not configured")
	}
	rawID, err := stringField(req, "document_id", true)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, common.InvalidArgumentError("document_id must be a UUID")
	}
	truth, err := stringField(req, "ground_truth", false)
	if err != nil {
		return nil, err
	}
	out, err := s.evals.Evaluate(ctx, id, truth)
	if err != nil {
		return nil, grpcError(err)
	}
	return reportStruct(out.Report, map[string]any{
		"evaluation_id": out.Evaluation.ID.String(),
		"document_id":   id.String(),
	})
}

func stringField(req *structpb.Struct, name string, required bool) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		if required {
			return "", common.InvalidArgumentErrorf("%s is required", name)
		}
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", common.InvalidArgumentErrorf("%s must be a string", name)
	}
	return sv.StringValue, nil
}

func reportStruct(r accuracy.Report, extra map[string]any) (*structpb.Struct, error) {
	mm := make([]any, len(r.Mismatches))
	for i, w := range r.Mismatches {
		mm[i] = w
	}
	m := map[string]any{
		"accuracy":         r.Accuracy,
		"correct":          r.Correct,
		"total":            r.Total,
		"mismatches":       mm,
		"mismatch_display": r.MismatchDisplay(),
	}
	for k, v := range extra {
		m[k] = v
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return out, nil
}

// unaryLogging attaches a request id and logs every call.
func unaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		rid := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 {
				rid = v[0]
			}
		}
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, rid)

		resp, err := handler(ctx, req)
		code := status.Code(err)
		attrs := []any{
			"req_id", rid,
			"method", info.FullMethod,
			"code", code.String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			logger.Warn("grpc.request", append(attrs, "error", err)...)
		} else {
			logger.Info("grpc.request", attrs...)
		}
		return resp, err
	}
}

// NewGRPCServer registers health, reflection and the scoring service.
func NewGRPCServer(scoring ScoringServer, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(unaryLogging(logger))}, opts...)
	s := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ScoringServiceName, healthpb.HealthCheckResponse_SERVING)

	// Reflection for grpcurl
	reflection.Register(s)

	s.RegisterService(&ScoringServiceDesc, scoring)
	return s, hs
}
