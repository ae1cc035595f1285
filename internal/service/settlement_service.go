package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/billspace/internal/core"
)

// SettlementService records payments made between space members.
type SettlementService struct {
	core   *core.Service
	logger *slog.Logger
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(svc *core.Service, logger *slog.Logger) *SettlementService {
	return &SettlementService{core: svc, logger: logger}
}

// Handler returns the path prefix and handler serving every SettlementService procedure.
func (s *SettlementService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(RecordSettlementProcedure, unary(RecordSettlementProcedure, s.RecordSettlement, opts))
	mux.Handle(ListSettlementsProcedure, unary(ListSettlementsProcedure, s.ListSettlements, opts))
	mux.Handle(DeactivateSettlementProcedure, unary(DeactivateSettlementProcedure, s.DeactivateSettlement, opts))
	return "/" + SettlementServiceName + "/", mux
}

// RecordSettlement records a payment from one member to another.
func (s *SettlementService) RecordSettlement(ctx context.Context, req *connect.Request[RecordSettlementRequest]) (*connect.Response[SettlementResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("RecordSettlement request received",
		"space_id", req.Msg.SpaceID,
		"from_user_id", req.Msg.FromUserID,
		"to_user_id", req.Msg.ToUserID,
	)

	st, err := s.core.RecordSettlement(ctx, userID, *req.Msg)
	if err != nil {
		s.logger.Warn("RecordSettlement failed", "space_id", req.Msg.SpaceID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Settlement recorded", "settlement_id", st.ID, "amount", st.Amount.String())
	return connect.NewResponse(&SettlementResponse{Settlement: toSettlement(st)}), nil
}

// ListSettlements returns the active settlements of a space.
func (s *SettlementService) ListSettlements(ctx context.Context, req *connect.Request[SpaceRequest]) (*connect.Response[ListSettlementsResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.core.ListSettlements(ctx, userID, req.Msg.SpaceID)
	if err != nil {
		s.logger.Warn("ListSettlements failed", "space_id", req.Msg.SpaceID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]Settlement, len(list))
	for i, st := range list {
		out[i] = toSettlement(st)
	}
	return connect.NewResponse(&ListSettlementsResponse{Settlements: out}), nil
}

// DeactivateSettlement retires a settlement so balances ignore it.
func (s *SettlementService) DeactivateSettlement(ctx context.Context, req *connect.Request[SettlementRequest]) (*connect.Response[emptypb.Empty], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("DeactivateSettlement request received", "settlement_id", req.Msg.SettlementID)

	if err := s.core.DeactivateSettlement(ctx, userID, req.Msg.SettlementID); err != nil {
		s.logger.Warn("DeactivateSettlement failed", "settlement_id", req.Msg.SettlementID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("Settlement deactivated", "settlement_id", req.Msg.SettlementID)
	return connect.NewResponse(&emptypb.Empty{}), nil
}
