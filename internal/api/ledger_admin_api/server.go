// Package ledger_admin_api serves the operator-facing LedgerAdmin gRPC service
// and its HTTP mapping on the grpc-gateway mux. Messages are protobuf
// well-known types, so no generated code is needed.
package ledger_admin_api

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/openride/seatreserve/internal/domain"
	"github.com/openride/seatreserve/internal/service/booking"
)

const ServiceName = "openride.ledger.v1.LedgerAdmin"

// Admin is implemented by booking.Facade.
type Admin interface {
	AvailableSeats(ctx context.Context, routeID string) (int, error)
	ExpireOverdue(ctx context.Context) ([]domain.SeatHold, error)
	Reconcile(ctx context.Context) (int, error)
}

type LedgerAdminServer interface {
	AvailableSeats(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int32Value, error)
	ExpireOverdue(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reconcile(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type Server struct {
	admin Admin
}

func NewServer(admin Admin) *Server {
	return &Server{admin: admin}
}

func Register(s grpc.ServiceRegistrar, srv LedgerAdminServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func (s *Server) AvailableSeats(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.Int32Value, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "route id is required")
	}
	n, err := s.admin.AvailableSeats(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Int32(int32(n)), nil
}

func (s *Server) ExpireOverdue(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	expired, err := s.admin.ExpireOverdue(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	ids := make([]any, 0, len(expired))
	for _, h := range expired {
		ids = append(ids, h.ID)
	}
	return structpb.NewStruct(map[string]any{
		"expired":  len(expired),
		"hold_ids": ids,
	})
}

func (s *Server) Reconcile(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	n, err := s.admin.Reconcile(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"reconciled": n})
}

func toStatus(err error) error {
	e := booking.AsError(err)
	if e == nil {
		return nil
	}
	code := codes.Internal
	switch e.Status {
	case http.StatusBadRequest:
		code = codes.InvalidArgument
	case http.StatusNotFound:
		code = codes.NotFound
	case http.StatusConflict, http.StatusGone:
		code = codes.FailedPrecondition
	case http.StatusForbidden:
		code = codes.PermissionDenied
	case http.StatusUnauthorized:
		code = codes.Unauthenticated
	case http.StatusServiceUnavailable:
		code = codes.Unavailable
	}
	if errors.Is(err, context.Canceled) {
		code = codes.Canceled
	}
	return status.Error(code, e.Message)
}
